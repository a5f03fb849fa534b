package model

import "time"

// OrderStatus tracks an order through the canteen's workflow. Statuses
// only move forward; a rejected order is terminal.
type OrderStatus string

const (
	OrderPlaced    OrderStatus = "PLACED"
	OrderAccepted  OrderStatus = "ACCEPTED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderRejected  OrderStatus = "REJECTED"
)

// PaymentStatus is reported by the backend's payment collaborator; the
// client only displays it and reacts to realtime updates.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// OrderLine is one menu item within an order. Name and PriceCents are
// denormalized at placement time so later menu edits do not rewrite
// order history.
type OrderLine struct {
	ItemID     uint64 `json:"item_id"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceCents uint32 `json:"price_cents"`
}

// Order mirrors the `orders` table plus its `order_items` lines.
type Order struct {
	ID            uint64        `json:"id"`
	StudentID     uint64        `json:"student_id"`
	CanteenID     uint64        `json:"canteen_id"`
	Lines         []OrderLine   `json:"lines"`
	TotalCents    uint32        `json:"total_cents"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
}
