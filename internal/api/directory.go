package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/campuseats/campuseats/internal/model"
)

// Colleges lists every college. Public: the onboarding wizard needs it
// before any role-specific surface is reachable.
func (c *Client) Colleges(ctx context.Context) ([]model.College, error) {
	var out []model.College
	err := c.do(ctx, http.MethodGet, "/v1/colleges", nil, &out, http.StatusOK)
	return out, err
}

// Canteens lists the verified canteens of a college.
func (c *Client) Canteens(ctx context.Context, collegeID uint64) ([]model.Canteen, error) {
	var out []model.Canteen
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/colleges/%d/canteens", collegeID), nil, &out, http.StatusOK)
	return out, err
}

// Menu lists a canteen's menu items.
func (c *Client) Menu(ctx context.Context, canteenID uint64) ([]model.MenuItem, error) {
	var out []model.MenuItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/canteens/%d/menu", canteenID), nil, &out, http.StatusOK)
	return out, err
}
