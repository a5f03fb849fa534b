package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/realtime"
	"github.com/campuseats/campuseats/internal/repository"
	"github.com/campuseats/campuseats/internal/service"
)

// OrderHandler serves order placement for students, the order queue
// for owners and the payment webhook. Every state change is published
// to the rooms that care; publish failures are logged and swallowed.
type OrderHandler struct {
	Log      *slog.Logger
	Orders   *repository.OrderRepo
	Menu     *repository.MenuRepo
	Canteens *repository.CanteenRepo
	Pub      *service.Publisher
}

func NewOrderHandler(log *slog.Logger, o *repository.OrderRepo, m *repository.MenuRepo, cn *repository.CanteenRepo, pub *service.Publisher) *OrderHandler {
	return &OrderHandler{Log: log, Orders: o, Menu: m, Canteens: cn, Pub: pub}
}

type placeOrderReq struct {
	CanteenID uint64 `json:"canteen_id"`
	Items     []struct {
		ItemID uint64 `json:"item_id"`
		Qty    int    `json:"qty"`
	} `json:"items"`
}

// Place creates an order, reserving stock line by line inside one
// transaction. Any unavailable or understocked item aborts the whole
// order with 409.
func (h *OrderHandler) Place(c echo.Context) error {
	var req placeOrderReq
	if err := c.Bind(&req); err != nil || req.CanteenID == 0 || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "canteen_id and items required"})
	}
	for _, it := range req.Items {
		if it.ItemID == 0 || it.Qty < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid line"})
		}
	}
	studentID := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Orders.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin failed"})
	}
	defer tx.Rollback()

	order := model.Order{
		StudentID:     studentID,
		CanteenID:     req.CanteenID,
		Status:        model.OrderPlaced,
		PaymentStatus: model.PaymentPending,
	}
	for _, it := range req.Items {
		item, err := h.Menu.GetTx(ctx, tx, it.ItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown item"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "item lookup failed"})
		}
		if item.CanteenID != req.CanteenID {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "item from another canteen"})
		}
		if err := h.Menu.DecrementStockTx(ctx, tx, it.ItemID, it.Qty); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "item unavailable or out of stock"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stock update failed"})
		}
		order.Lines = append(order.Lines, model.OrderLine{
			ItemID:     item.ID,
			Name:       item.Name,
			Qty:        it.Qty,
			PriceCents: item.PriceCents,
		})
		order.TotalCents += item.PriceCents * uint32(it.Qty)
	}

	if err := h.Orders.CreateTx(ctx, tx, &order); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	_ = h.Pub.Publish(ctx, realtime.EventOrderCreated, realtime.OrderCreatedEvent{
		OrderID:    order.ID,
		CanteenID:  order.CanteenID,
		StudentID:  order.StudentID,
		TotalCents: order.TotalCents,
		PlacedAt:   order.CreatedAt.UTC().Format(time.RFC3339),
	}, realtime.CanteenRoom(order.CanteenID), realtime.UserRoom(order.StudentID))

	for _, l := range order.Lines {
		if item, err := h.Menu.Get(ctx, l.ItemID); err == nil {
			_ = h.Pub.Publish(ctx, realtime.EventStockChanged, realtime.StockChangedEvent{
				CanteenID: order.CanteenID,
				ItemID:    item.ID,
				Stock:     item.Stock,
			}, realtime.CanteenRoom(order.CanteenID))
		}
	}

	return c.JSON(http.StatusCreated, order)
}

// ListMine returns the student's own orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Orders.ListByStudent(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// ListForCanteen returns the owner's order queue.
func (h *OrderHandler) ListForCanteen(c echo.Context) error {
	ownerID := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	canteenID, err := h.Canteens.IDByOwner(ctx, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "canteen lookup failed"})
	}
	if canteenID == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no canteen yet"})
	}
	out, err := h.Orders.ListByCanteenForOwner(ctx, *canteenID, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, out)
}

type statusReq struct {
	Status string `json:"status"`
}

// SetStatus advances an order through the workflow and notifies the
// student's room.
func (h *OrderHandler) SetStatus(c echo.Context) error {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}
	ownerID := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.Orders.UpdateStatusForOwner(ctx, orderID, ownerID, model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your order"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "illegal status transition"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	_ = h.Pub.Publish(ctx, realtime.EventOrderStatus, realtime.OrderStatusEvent{
		OrderID:   order.ID,
		CanteenID: order.CanteenID,
		StudentID: order.StudentID,
		Status:    string(order.Status),
	}, realtime.UserRoom(order.StudentID), realtime.CanteenRoom(order.CanteenID))

	return c.JSON(http.StatusOK, order)
}

type paymentWebhookReq struct {
	OrderID uint64 `json:"order_id"`
	Status  string `json:"status"`
}

// PaymentWebhook records the payment collaborator's verdict and pushes
// it to the student. The endpoint trusts the gateway's shared secret
// checked at the router level.
func (h *OrderHandler) PaymentWebhook(c echo.Context) error {
	var req paymentWebhookReq
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_id and status required"})
	}
	status := model.PaymentStatus(req.Status)
	switch status {
	case model.PaymentPaid, model.PaymentFailed, model.PaymentRefunded:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.SetPaymentStatus(ctx, req.OrderID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	var studentID uint64
	if err := h.Orders.DB().QueryRowContext(ctx,
		"SELECT student_id FROM orders WHERE id=?", req.OrderID).Scan(&studentID); err == nil {
		_ = h.Pub.Publish(ctx, realtime.EventPaymentStatus, realtime.PaymentStatusEvent{
			OrderID:   req.OrderID,
			StudentID: studentID,
			Status:    string(status),
		}, realtime.UserRoom(studentID))
	}
	return c.NoContent(http.StatusNoContent)
}
