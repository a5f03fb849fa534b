package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/repository"
)

// OnboardingHandler serves the wizard's persistence endpoints. The
// server owns the progress record; clients resume from whatever step
// is stored here.
type OnboardingHandler struct {
	DB       *sql.DB
	Log      *slog.Logger
	Users    *repository.UserRepo
	Colleges *repository.CollegeRepo
	Canteens *repository.CanteenRepo
}

func NewOnboardingHandler(db *sql.DB, log *slog.Logger, u *repository.UserRepo, col *repository.CollegeRepo, cn *repository.CanteenRepo) *OnboardingHandler {
	return &OnboardingHandler{DB: db, Log: log, Users: u, Colleges: col, Canteens: cn}
}

type saveStepReq struct {
	Step   int            `json:"step"`
	Fields map[string]any `json:"fields"`
}

type progressResp struct {
	Step   int            `json:"step"`
	Fields map[string]any `json:"fields"`
}

// Progress returns the stored step and field blob.
func (h *OnboardingHandler) Progress(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	fields := map[string]any{}
	if len(u.OnboardingFields) > 0 {
		_ = json.Unmarshal(u.OnboardingFields, &fields)
	}
	return c.JSON(http.StatusOK, progressResp{Step: u.OnboardingStep, Fields: fields})
}

// SaveStep merges one step's fields into the record. Admins have no
// onboarding and completed users cannot reopen theirs.
func (h *OnboardingHandler) SaveStep(c echo.Context) error {
	var req saveStepReq
	if err := c.Bind(&req); err != nil || req.Step < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "step and fields required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if u.Role == string(model.RoleAdmin) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admins have no onboarding"})
	}
	if u.OnboardingCompleted {
		return c.JSON(http.StatusConflict, echo.Map{"error": "onboarding already completed"})
	}

	if v, ok := req.Fields["college_id"].(float64); ok && v > 0 {
		exists, err := h.Colleges.Exists(ctx, uint64(v))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "college lookup failed"})
		}
		if !exists {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown college"})
		}
	}

	if err := h.Users.SaveOnboardingStep(ctx, u.ID, req.Step, req.Fields); err != nil {
		h.Log.Error("save onboarding step failed", "user", u.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Complete flips the one-way completion flag and, for canteen owners,
// creates the canteen row in the same transaction. Repeated calls are
// safe and return the current identity.
func (h *OnboardingHandler) Complete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if u.Role == string(model.RoleAdmin) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admins have no onboarding"})
	}

	var canteenID *uint64
	if u.Role == string(model.RoleCanteenOwner) {
		canteenID, err = h.completeOwner(ctx, u)
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return c.JSON(he.Code, echo.Map{"error": he.Message})
			}
			h.Log.Error("complete onboarding failed", "user", u.ID, "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete failed"})
		}
	} else if err := h.Users.CompleteOnboarding(ctx, u.ID); err != nil {
		h.Log.Error("complete onboarding failed", "user", u.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete failed"})
	}

	fresh, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, fresh.Identity(canteenID))
}

// completeOwner creates the canteen and marks completion atomically.
// The canteen name and college come from the saved wizard fields.
func (h *OnboardingHandler) completeOwner(ctx context.Context, u repository.User) (*uint64, error) {
	fields := map[string]any{}
	if len(u.OnboardingFields) > 0 {
		_ = json.Unmarshal(u.OnboardingFields, &fields)
	}
	name, _ := fields["canteen_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "canteen_name missing from onboarding")
	}
	if !u.CollegeID.Valid {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "college not chosen")
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cid, err := h.Canteens.CreateTx(ctx, tx, u.ID, uint64(u.CollegeID.Int64), name)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET onboarding_completed=1 WHERE id=?", u.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &cid, nil
}
