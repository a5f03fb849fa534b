package guard

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/session"
	"github.com/campuseats/campuseats/internal/storage"
)

func ptr(v uint64) *uint64 { return &v }

func studentAtStep(step int, completed bool) *model.Identity {
	return &model.Identity{ID: 10, Role: model.RoleStudent, OnboardingStep: step, OnboardingCompleted: completed, CollegeID: ptr(1)}
}

func owner(completed, verified bool) *model.Identity {
	return &model.Identity{ID: 20, Role: model.RoleCanteenOwner, OnboardingStep: 3, OnboardingCompleted: completed, AdminVerified: verified, CanteenID: ptr(5)}
}

func admin() *model.Identity {
	return &model.Identity{ID: 1, Role: model.RoleAdmin}
}

func TestEvaluateTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		identity *model.Identity
		path     string
		action   Action
		target   string
	}{
		// Rule 1: anonymous.
		{"anonymous to protected student page", nil, "/student/profile", ActionRedirect, PathLanding},
		{"anonymous to onboarding", nil, "/onboarding/student/step1", ActionRedirect, PathLanding},
		{"anonymous to pending approval", nil, PathPendingApproval, ActionRedirect, PathLanding},
		{"anonymous to landing", nil, PathLanding, ActionAllow, ""},
		{"anonymous to login", nil, PathLogin, ActionAllow, ""},

		// Rule 2: pending approval outranks everything for an
		// unverified, fully onboarded owner (P5).
		{"unverified owner to canteen home", owner(true, false), PathCanteenHome, ActionRedirect, PathPendingApproval},
		{"unverified owner to own onboarding", owner(true, false), "/onboarding/canteen/step3", ActionRedirect, PathPendingApproval},
		{"unverified owner to student page", owner(true, false), "/student/home", ActionRedirect, PathPendingApproval},
		{"unverified owner to landing", owner(true, false), PathLanding, ActionRedirect, PathPendingApproval},
		{"unverified owner on pending approval stays", owner(true, false), PathPendingApproval, ActionAllow, ""},
		{"verified owner to canteen home", owner(true, true), PathCanteenHome, ActionAllow, ""},

		// Rule 3: resumable onboarding (P1, scenario A).
		{"student mid-onboarding to home", studentAtStep(2, false), PathStudentHome, ActionRedirect, "/onboarding/student/step2"},
		{"student mid-onboarding to landing", studentAtStep(2, false), PathLanding, ActionRedirect, "/onboarding/student/step2"},
		{"student step clamped low", studentAtStep(0, false), PathStudentHome, ActionRedirect, "/onboarding/student/step1"},
		{"student step clamped high", studentAtStep(9, false), PathStudentHome, ActionRedirect, "/onboarding/student/step3"},
		{"student inside wizard allowed", studentAtStep(2, false), "/onboarding/student/step2", ActionAllow, ""},
		{"admin exempt from onboarding", admin(), PathAdminHome, ActionAllow, ""},
		{"incomplete owner pulled into wizard", owner(false, false), PathCanteenHome, ActionRedirect, "/onboarding/canteen/step3"},

		// Rule 4: wizard not re-enterable once complete (P2) and
		// role-segment mismatches bounce home.
		{"completed student re-enters wizard", studentAtStep(3, true), "/onboarding/student/step1", ActionRedirect, PathStudentHome},
		{"student on canteen wizard", studentAtStep(1, false), "/onboarding/canteen/step1", ActionRedirect, PathStudentHome},
		{"admin on student wizard", admin(), "/onboarding/student/step1", ActionRedirect, PathAdminHome},

		// Rule 5: role-restricted destinations.
		{"completed student on canteen page", studentAtStep(3, true), "/canteen/home", ActionRedirect, PathStudentHome},
		{"verified owner on admin page", owner(true, true), "/admin/dashboard", ActionRedirect, PathCanteenHome},
		{"admin on student page", admin(), "/student/home", ActionRedirect, PathAdminHome},

		// Rule 6: default allow.
		{"completed student on own page", studentAtStep(3, true), "/student/home", ActionAllow, ""},
		{"completed student on public page", studentAtStep(3, true), PathLanding, ActionAllow, ""},
		{"admin on admin page", admin(), PathAdminHome, ActionAllow, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Evaluate(tc.identity, tc.path)
			require.Equal(t, tc.action, out.Action)
			if tc.action == ActionRedirect {
				require.Equal(t, tc.target, out.Target)
			}
		})
	}
}

// Scenario B from the product spec: completed-but-unverified owner
// lands on pending approval from anywhere, even when the onboarding
// rule would also match.
func TestPendingApprovalPrecedence(t *testing.T) {
	t.Parallel()

	id := owner(true, false)
	for _, path := range []string{PathCanteenHome, "/onboarding/canteen/step1", "/student/home", PathLanding, "/canteen/orders"} {
		out := Evaluate(id, path)
		require.Equal(t, ActionRedirect, out.Action, "path %s", path)
		require.Equal(t, PathPendingApproval, out.Target, "path %s", path)
		require.Equal(t, "pending-approval", out.Rule, "path %s", path)
	}
}

// Every (identity, path) pair yields exactly one outcome; the rule
// list never panics on odd inputs.
func TestEvaluateTotal(t *testing.T) {
	t.Parallel()

	ids := []*model.Identity{nil, studentAtStep(1, false), studentAtStep(3, true), owner(false, false), owner(true, false), owner(true, true), admin()}
	paths := []string{"", "/", "/login", "/weird", "/onboarding/", "/onboarding/student", "/onboarding/x/step9", "/student/", "/canteen/a/b/c", PathPendingApproval}
	for _, id := range ids {
		for _, p := range paths {
			require.NotPanics(t, func() { Evaluate(id, p) })
		}
	}
}

func TestDecideDuringRestoration(t *testing.T) {
	t.Parallel()

	sess := session.NewStore(storage.NewMemStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	g := New(sess)

	out := g.Decide("/student/home")
	require.Equal(t, ActionLoading, out.Action, "no redirect before restore completes")

	sess.Restore(context.Background())
	out = g.Decide("/student/home")
	require.Equal(t, ActionRedirect, out.Action)
	require.Equal(t, PathLanding, out.Target)
}

func TestOnboardingPathClamping(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/onboarding/student/step1", OnboardingPath(model.RoleStudent, -3))
	require.Equal(t, "/onboarding/canteen/step3", OnboardingPath(model.RoleCanteenOwner, 99))
	require.Equal(t, "/onboarding/student/step2", OnboardingPath(model.RoleStudent, 2))
}
