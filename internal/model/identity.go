package model

import "time"

// Role identifies which side of the marketplace an account belongs to.
// The value is immutable for the lifetime of a session: it is set when
// the account is created and carried inside the JWT role claim.
type Role string

const (
	RoleStudent      Role = "student"      // orders food from canteens
	RoleCanteenOwner Role = "canteenOwner" // runs a canteen; needs admin verification
	RoleAdmin        Role = "admin"        // platform operator; no onboarding flow
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCanteenOwner, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated principal as returned by the auth
// endpoints and mirrored into durable client storage. OnboardingStep is
// 1-based and only moves forward while OnboardingCompleted is false;
// OnboardingCompleted itself is a one-way transition. AdminVerified is
// meaningful only for canteen owners. CollegeID and CanteenID are nil
// until the respective onboarding step links them.
type Identity struct {
	ID                  uint64  `json:"id"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone,omitempty"`
	Role                Role    `json:"role"`
	OnboardingStep      int     `json:"onboarding_step"`
	OnboardingCompleted bool    `json:"onboarding_completed"`
	AdminVerified       bool    `json:"admin_verified"`
	CollegeID           *uint64 `json:"college_id,omitempty"`
	CanteenID           *uint64 `json:"canteen_id,omitempty"`
}

// Credential is the opaque bearer pair attached to every API call on
// behalf of an Identity. AccessExpires is the server-reported expiry of
// the access token; the refresh token outlives it and is exchanged for
// a new access token when the old one lapses.
type Credential struct {
	AccessToken    string    `json:"access_token"`
	AccessExpires  time.Time `json:"access_expires"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires"`
}

// ExpiresWithin reports whether the access token expires inside the
// given window (or already has). A zero AccessExpires means the server
// did not report an expiry; treat the token as still usable and let the
// backend reject it if it is not.
func (c Credential) ExpiresWithin(window time.Duration) bool {
	if c.AccessExpires.IsZero() {
		return false
	}
	return time.Now().Add(window).After(c.AccessExpires)
}
