// Package realtime carries push notifications from the backend to
// clients. Events are JSON payloads published to a topic exchange with
// the room name as routing key; the event name rides in the message
// type field. The binder on the client side joins the rooms for the
// current identity and dispatches payloads untouched; no business
// logic lives on this path.
package realtime

import "fmt"

// Event names shared by publisher and subscribers.
const (
	EventStockChanged  = "stock.changed"
	EventCanteenStatus = "canteen.status"
	EventOrderCreated  = "order.created"
	EventOrderStatus   = "order.status"
	EventPaymentStatus = "payment.status"
	EventItemUpserted  = "item.upserted"
)

// UserRoom is the personal room a student joins: order and payment
// updates for that student are published here.
func UserRoom(userID uint64) string { return fmt.Sprintf("user.%d", userID) }

// CanteenRoom is the room a canteen owner joins: new orders, stock and
// status changes for that canteen are published here.
func CanteenRoom(canteenID uint64) string { return fmt.Sprintf("canteen.%d", canteenID) }

// StockChangedEvent reports a menu item's new stock level.
type StockChangedEvent struct {
	CanteenID uint64 `json:"canteen_id"`
	ItemID    uint64 `json:"item_id"`
	Stock     int    `json:"stock"`
}

// CanteenStatusEvent reports a canteen opening or closing.
type CanteenStatusEvent struct {
	CanteenID uint64 `json:"canteen_id"`
	IsOpen    bool   `json:"is_open"`
}

// OrderCreatedEvent notifies a canteen about a newly placed order.
type OrderCreatedEvent struct {
	OrderID    uint64 `json:"order_id"`
	CanteenID  uint64 `json:"canteen_id"`
	StudentID  uint64 `json:"student_id"`
	TotalCents uint32 `json:"total_cents"`
	PlacedAt   string `json:"placed_at"`
}

// OrderStatusEvent reports an order moving through the workflow.
type OrderStatusEvent struct {
	OrderID   uint64 `json:"order_id"`
	CanteenID uint64 `json:"canteen_id"`
	StudentID uint64 `json:"student_id"`
	Status    string `json:"status"`
}

// PaymentStatusEvent reports a payment state change for an order.
type PaymentStatusEvent struct {
	OrderID   uint64 `json:"order_id"`
	StudentID uint64 `json:"student_id"`
	Status    string `json:"status"`
}

// ItemUpsertedEvent notifies room members that a menu item was created
// or edited.
type ItemUpsertedEvent struct {
	CanteenID uint64 `json:"canteen_id"`
	ItemID    uint64 `json:"item_id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}
