package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/realtime"
	"github.com/campuseats/campuseats/internal/repository"
	"github.com/campuseats/campuseats/internal/service"
)

// OwnerHandler serves the canteen owner's management endpoints: the
// open/closed switch and menu editing.
type OwnerHandler struct {
	Log      *slog.Logger
	Canteens *repository.CanteenRepo
	Menu     *repository.MenuRepo
	Pub      *service.Publisher
}

func NewOwnerHandler(log *slog.Logger, cn *repository.CanteenRepo, m *repository.MenuRepo, pub *service.Publisher) *OwnerHandler {
	return &OwnerHandler{Log: log, Canteens: cn, Menu: m, Pub: pub}
}

// GetCanteen returns the owner's canteen.
func (h *OwnerHandler) GetCanteen(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	canteen, err := h.Canteens.GetByOwner(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no canteen yet"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, canteen)
}

type openReq struct {
	IsOpen bool `json:"is_open"`
}

// SetOpen flips the canteen's open flag and tells the room.
func (h *OwnerHandler) SetOpen(c echo.Context) error {
	var req openReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ownerID := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Canteens.SetOpen(ctx, ownerID, req.IsOpen); err != nil {
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "no canteen yet"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if canteenID, err := h.Canteens.IDByOwner(ctx, ownerID); err == nil && canteenID != nil {
		_ = h.Pub.Publish(ctx, realtime.EventCanteenStatus, realtime.CanteenStatusEvent{
			CanteenID: *canteenID,
			IsOpen:    req.IsOpen,
		}, realtime.CanteenRoom(*canteenID))
	}
	return c.NoContent(http.StatusNoContent)
}

type menuItemReq struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	Stock      int    `json:"stock"`
	Available  bool   `json:"available"`
}

// UpsertMenuItem creates or edits a menu item of the owner's canteen.
func (h *OwnerHandler) UpsertMenuItem(c echo.Context) error {
	var req menuItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents == 0 || req.Stock < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, price_cents and stock required"})
	}
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

	item := model.MenuItem{
		ID:         req.ID,
		CanteenID:  *canteenID,
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
		Available:  req.Available,
	}
	if err := h.Menu.Upsert(ctx, ownerID, &item); err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your canteen"})
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		h.Log.Error("menu upsert failed", "owner", ownerID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}

	_ = h.Pub.Publish(ctx, realtime.EventItemUpserted, realtime.ItemUpsertedEvent{
		CanteenID: item.CanteenID,
		ItemID:    item.ID,
		Name:      item.Name,
		Available: item.Available,
	}, realtime.CanteenRoom(item.CanteenID))

	return c.JSON(http.StatusOK, item)
}

// ListMenu returns the owner's own menu, drafts included.
func (h *OwnerHandler) ListMenu(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	canteenID, err := h.Canteens.IDByOwner(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "canteen lookup failed"})
	}
	if canteenID == nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "no canteen yet"})
	}
	out, err := h.Menu.ListByCanteen(ctx, *canteenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, out)
}
