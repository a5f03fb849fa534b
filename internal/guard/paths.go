package guard

import (
	"fmt"
	"strings"

	"github.com/campuseats/campuseats/internal/model"
)

// Well-known destinations.
const (
	PathLanding         = "/"
	PathLogin           = "/login"
	PathSignup          = "/signup"
	PathPendingApproval = "/pending-approval"
	PathStudentHome     = "/student/home"
	PathCanteenHome     = "/canteen/home"
	PathAdminHome       = "/admin/dashboard"

	onboardingPrefix = "/onboarding/"
)

// StepCount is the number of onboarding steps per role. Admins have no
// onboarding flow at all.
func StepCount(role model.Role) int {
	switch role {
	case model.RoleStudent, model.RoleCanteenOwner:
		return 3
	}
	return 0
}

// RoleHome is the default landing destination for an identity's role.
func RoleHome(role model.Role) string {
	switch role {
	case model.RoleStudent:
		return PathStudentHome
	case model.RoleCanteenOwner:
		return PathCanteenHome
	case model.RoleAdmin:
		return PathAdminHome
	}
	return PathLanding
}

// roleSegment is the path segment used under /onboarding/.
func roleSegment(role model.Role) string {
	if role == model.RoleCanteenOwner {
		return "canteen"
	}
	return "student"
}

// OnboardingPath builds /onboarding/{roleSegment}/step{N} for the
// identity's current step, clamped into the role's valid range.
func OnboardingPath(role model.Role, step int) string {
	if step < 1 {
		step = 1
	}
	if max := StepCount(role); max > 0 && step > max {
		step = max
	}
	return fmt.Sprintf("%s%s/step%d", onboardingPrefix, roleSegment(role), step)
}

// isOnboardingPath reports whether path is under /onboarding/ and, if
// so, which role segment it addresses.
func isOnboardingPath(path string) (segment string, ok bool) {
	if !strings.HasPrefix(path, onboardingPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, onboardingPrefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest, true
}

// allowedRoles returns the role set a destination is restricted to,
// or nil for public/any-authenticated destinations.
func allowedRoles(path string) []model.Role {
	switch {
	case strings.HasPrefix(path, "/student/"):
		return []model.Role{model.RoleStudent}
	case strings.HasPrefix(path, "/canteen/"):
		return []model.Role{model.RoleCanteenOwner}
	case strings.HasPrefix(path, "/admin/"):
		return []model.Role{model.RoleAdmin}
	}
	return nil
}

// requiresAuth reports whether the destination needs a logged-in
// identity. Everything outside the public surface does.
func requiresAuth(path string) bool {
	switch path {
	case PathLanding, PathLogin, PathSignup:
		return false
	}
	if _, ok := isOnboardingPath(path); ok {
		return true
	}
	if path == PathPendingApproval {
		return true
	}
	return allowedRoles(path) != nil
}
