package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/campuseats/campuseats/internal/model"
)

// OrderLineInput is one requested item when placing an order.
type OrderLineInput struct {
	ItemID uint64 `json:"item_id"`
	Qty    int    `json:"qty"`
}

// PlaceOrder places an order as the logged-in student.
func (c *Client) PlaceOrder(ctx context.Context, canteenID uint64, lines []OrderLineInput) (model.Order, error) {
	var out model.Order
	err := c.doAuth(ctx, http.MethodPost, "/v1/orders", map[string]any{
		"canteen_id": canteenID,
		"items":      lines,
	}, &out, http.StatusCreated)
	return out, err
}

// MyOrders lists the student's own orders, newest first.
func (c *Client) MyOrders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	err := c.doAuth(ctx, http.MethodGet, "/v1/orders", nil, &out, http.StatusOK)
	return out, err
}

// CanteenOrders lists the orders of the owner's canteen.
func (c *Client) CanteenOrders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	err := c.doAuth(ctx, http.MethodGet, "/v1/canteen/orders", nil, &out, http.StatusOK)
	return out, err
}

// SetOrderStatus advances an order through the canteen workflow.
func (c *Client) SetOrderStatus(ctx context.Context, orderID uint64, status model.OrderStatus) (model.Order, error) {
	var out model.Order
	err := c.doAuth(ctx, http.MethodPatch, fmt.Sprintf("/v1/canteen/orders/%d/status", orderID),
		map[string]string{"status": string(status)}, &out, http.StatusOK)
	return out, err
}

// SetCanteenOpen toggles the owner's canteen open or closed.
func (c *Client) SetCanteenOpen(ctx context.Context, open bool) error {
	return c.doAuth(ctx, http.MethodPatch, "/v1/canteen/status",
		map[string]bool{"is_open": open}, nil, http.StatusNoContent)
}
