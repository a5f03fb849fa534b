// Package guard decides, for every navigation, whether the requested
// destination is reachable for the current identity. The decision
// procedure is an explicit ordered rule list evaluated top to bottom;
// the first rule that matches wins, which resolves any overlap between
// rules deterministically. Each rule is a pure function of
// (identity, path), so the whole table is unit-testable without a UI.
package guard

import (
	"github.com/campuseats/campuseats/internal/model"
)

// Action classifies a guard outcome.
type Action int

const (
	// ActionAllow lets the navigation proceed.
	ActionAllow Action = iota
	// ActionRedirect sends the user to Outcome.Target instead.
	ActionRedirect
	// ActionLoading means session restoration is still in progress:
	// render a neutral loading state and decide nothing yet.
	ActionLoading
)

// Outcome is the guard's verdict for one navigation.
type Outcome struct {
	Action Action
	Target string // set when Action == ActionRedirect
	Rule   string // name of the rule that fired, for logging
}

// Rule is one entry in the ordered decision list. Eval returns the
// outcome and true when the rule applies, or false to fall through.
type Rule struct {
	Name string
	Eval func(id *model.Identity, path string) (Outcome, bool)
}

// Rules is the decision list, in precedence order. Exported so tests
// can assert the ordering directly.
var Rules = []Rule{
	{Name: "anonymous", Eval: ruleAnonymous},
	{Name: "pending-approval", Eval: rulePendingApproval},
	{Name: "onboarding-incomplete", Eval: ruleOnboardingIncomplete},
	{Name: "onboarding-mismatch", Eval: ruleOnboardingMismatch},
	{Name: "role-mismatch", Eval: ruleRoleMismatch},
}

// Evaluate runs the rule list for one (identity, path) pair. It is
// total: every input yields exactly one outcome and it never panics;
// the final fallthrough allows the navigation.
func Evaluate(id *model.Identity, path string) Outcome {
	for _, r := range Rules {
		if out, ok := r.Eval(id, path); ok {
			out.Rule = r.Name
			return out
		}
	}
	return Outcome{Action: ActionAllow, Rule: "allow"}
}

// SessionReader is the slice of the session store the guard needs.
type SessionReader interface {
	Restored() bool
	Identity() *model.Identity
}

// Guard binds the rule list to a live session store. It re-reads the
// identity on every call rather than caching a decision, so a freshly
// fetched identity always wins over stale state.
type Guard struct {
	session SessionReader
}

func New(session SessionReader) *Guard {
	return &Guard{session: session}
}

// Decide evaluates the rules for the current identity. While session
// restoration is still running it returns ActionLoading and no
// redirect happens.
func (g *Guard) Decide(path string) Outcome {
	if !g.session.Restored() {
		return Outcome{Action: ActionLoading, Rule: "restoring"}
	}
	return Evaluate(g.session.Identity(), path)
}

func redirect(target string) (Outcome, bool) {
	return Outcome{Action: ActionRedirect, Target: target}, true
}

// Rule 1: anonymous users may only visit the public surface.
func ruleAnonymous(id *model.Identity, path string) (Outcome, bool) {
	if id == nil && requiresAuth(path) {
		return redirect(PathLanding)
	}
	return Outcome{}, false
}

// Rule 2: a canteen owner who finished onboarding but is not yet
// admin-verified is parked on the pending-approval page. This runs
// before the onboarding rules: when both could apply, pending-approval
// wins.
func rulePendingApproval(id *model.Identity, path string) (Outcome, bool) {
	if id != nil &&
		id.Role == model.RoleCanteenOwner &&
		id.OnboardingCompleted &&
		!id.AdminVerified &&
		path != PathPendingApproval {
		return redirect(PathPendingApproval)
	}
	return Outcome{}, false
}

// Rule 3: anyone (except admins, who have no onboarding flow) with
// incomplete onboarding is pulled into the wizard at their current
// step, unless they are already inside it or on pending-approval.
func ruleOnboardingIncomplete(id *model.Identity, path string) (Outcome, bool) {
	if id == nil || id.Role == model.RoleAdmin || id.OnboardingCompleted {
		return Outcome{}, false
	}
	if _, inside := isOnboardingPath(path); inside || path == PathPendingApproval {
		return Outcome{}, false
	}
	return redirect(OnboardingPath(id.Role, id.OnboardingStep))
}

// Rule 4: the wizard itself is only reachable for the matching role
// and only while onboarding is incomplete; otherwise the user goes to
// their role home. This is what makes completion one-way (P2).
func ruleOnboardingMismatch(id *model.Identity, path string) (Outcome, bool) {
	segment, inside := isOnboardingPath(path)
	if !inside || id == nil {
		return Outcome{}, false
	}
	if segment != roleSegment(id.Role) || id.OnboardingCompleted || id.Role == model.RoleAdmin {
		return redirect(RoleHome(id.Role))
	}
	return Outcome{}, false
}

// Rule 5: role-restricted destinations bounce other roles to their own
// home.
func ruleRoleMismatch(id *model.Identity, path string) (Outcome, bool) {
	roles := allowedRoles(path)
	if id == nil || len(roles) == 0 {
		return Outcome{}, false
	}
	for _, r := range roles {
		if id.Role == r {
			return Outcome{}, false
		}
	}
	return redirect(RoleHome(id.Role))
}
