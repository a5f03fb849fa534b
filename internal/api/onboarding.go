package api

import (
	"context"
	"net/http"

	"github.com/campuseats/campuseats/internal/model"
)

// Progress is the server-owned onboarding state. The client treats it
// as a read-mostly cache refreshed on wizard entry; writes only go
// through SaveStep.
type Progress struct {
	Step   int            `json:"step"`
	Fields map[string]any `json:"fields"`
}

// Progress fetches the current onboarding progress for the session.
func (c *Client) Progress(ctx context.Context) (Progress, error) {
	var p Progress
	err := c.doAuth(ctx, http.MethodGet, "/v1/onboarding", nil, &p, http.StatusOK)
	return p, err
}

// SaveStep persists one step's field values. The backend advances its
// recorded step monotonically; the wizard only moves forward after
// this returns nil.
func (c *Client) SaveStep(ctx context.Context, step int, fields map[string]any) error {
	return c.doAuth(ctx, http.MethodPut, "/v1/onboarding/step", map[string]any{
		"step":   step,
		"fields": fields,
	}, nil, http.StatusNoContent)
}

// CompleteOnboarding flips the one-way completion flag and returns the
// refreshed identity (for canteen owners it now carries the linked
// canteen).
func (c *Client) CompleteOnboarding(ctx context.Context) (model.Identity, error) {
	var id model.Identity
	err := c.doAuth(ctx, http.MethodPost, "/v1/onboarding/complete", nil, &id, http.StatusOK)
	return id, err
}
