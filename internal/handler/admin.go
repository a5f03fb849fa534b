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

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/repository"
)

// AdminHandler serves the platform admin's verification queue. Canteen
// owners stay on the pending-approval surface until an admin flips
// their verified flag here.
type AdminHandler struct {
	Log   *slog.Logger
	Users *repository.UserRepo
}

func NewAdminHandler(log *slog.Logger, u *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Log: log, Users: u}
}

type pendingOwner struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	CollegeID   *uint64   `json:"college_id,omitempty"`
	CompletedAt time.Time `json:"updated_at"`
}

// ListPendingOwners returns owners who finished onboarding and await
// verification.
func (h *AdminHandler) ListPendingOwners(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListUnverifiedOwners(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]pendingOwner, 0, len(users))
	for _, u := range users {
		p := pendingOwner{ID: u.ID, Name: u.Name, Email: u.Email, CompletedAt: u.UpdatedAt}
		if u.Phone.Valid {
			p.Phone = u.Phone.String
		}
		if u.CollegeID.Valid {
			cid := uint64(u.CollegeID.Int64)
			p.CollegeID = &cid
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, out)
}

type verifyReq struct {
	Verified bool `json:"verified"`
}

// VerifyOwner approves or rejects a canteen owner.
func (h *AdminHandler) VerifyOwner(c echo.Context) error {
	ownerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || ownerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid owner id"})
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "owner not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role != string(model.RoleCanteenOwner) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not a canteen owner"})
	}

	if err := h.Users.SetAdminVerified(ctx, ownerID, req.Verified); err != nil {
		h.Log.Error("verify owner failed", "owner", ownerID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Log.Info("owner verification changed", "owner", ownerID, "verified", req.Verified)
	return c.NoContent(http.StatusNoContent)
}
