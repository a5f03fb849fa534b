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

	"github.com/campuseats/campuseats/internal/config"
	"github.com/campuseats/campuseats/internal/middleware"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/repository"
	"github.com/campuseats/campuseats/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Log      *slog.Logger
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	OTPs     *repository.OTPRepo
	Canteens *repository.CanteenRepo
}

func NewAuthHandler(cfg config.Config, log *slog.Logger, u *repository.UserRepo, t *repository.TokenRepo, o *repository.OTPRepo, cn *repository.CanteenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Log: log, Users: u, Tokens: t, OTPs: o, Canteens: cn}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // student | canteenOwner
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type otpRequestReq struct {
	Email string `json:"email"`
}
type otpVerifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.Identity `json:"user"`
	Access  tokenPart      `json:"access"`
	Refresh tokenPart      `json:"refresh"`
}

// identityFor assembles the wire identity, resolving the canteen link
// for owners.
func (h *AuthHandler) identityFor(ctx context.Context, u repository.User) (model.Identity, error) {
	var canteenID *uint64
	if u.Role == string(model.RoleCanteenOwner) {
		id, err := h.Canteens.IDByOwner(ctx, u.ID)
		if err != nil {
			return model.Identity{}, err
		}
		canteenID = id
	}
	return u.Identity(canteenID), nil
}

// issuePair mints an access/refresh pair and stores the refresh hash.
func (h *AuthHandler) issuePair(ctx context.Context, u repository.User) (tokenPart, tokenPart, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPart{}, tokenPart{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenPart{}, tokenPart{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenPart{}, tokenPart{}, err
	}
	return tokenPart{Token: access.Token, Expires: access.Exp},
		tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, nil
}

func (h *AuthHandler) respond(c echo.Context, status int, u repository.User) error {
	ctx := c.Request().Context()
	id, err := h.identityFor(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load identity failed"})
	}
	access, refresh, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(status, authResp{User: id, Access: access, Refresh: refresh})
}

// Register creates an account and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/email/password required"})
	}
	role := model.Role(strings.TrimSpace(req.Role))
	if role != model.RoleStudent && role != model.RoleCanteenOwner {
		role = model.RoleStudent
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, string(role), h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		h.Log.Error("create user failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.respond(c, http.StatusCreated, u)
}

// Login verifies email/password and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.PasswordHash.Valid || !utils.VerifyPassword(u.PasswordHash.String, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.respond(c, http.StatusOK, u)
}

// RequestOTP mails a one-time code to the address. The response is 202
// whether or not the address is known, so the endpoint cannot be used
// to probe for accounts.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req otpRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	code, err := utils.RandomOTPCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "code generation failed"})
	}
	if err := h.OTPs.Store(ctx, email, utils.HashOTP(code)); err != nil {
		h.Log.Error("store otp failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "code delivery failed"})
	}
	// Mail delivery is a collaborator; in dev the code lands in the log.
	if h.Cfg.Env != "production" {
		h.Log.Info("otp issued", "email", email, "code", code)
	}
	return c.NoContent(http.StatusAccepted)
}

// VerifyOTP exchanges a mailed code for a session pair. Unknown
// addresses get a fresh student account on the spot.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req otpVerifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.OTPs.Consume(ctx, email, utils.HashOTP(code)); err != nil {
		if errors.Is(err, repository.ErrOTPInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verify failed"})
	}

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		name := email[:strings.Index(email, "@")]
		uid, cerr := h.Users.Create(ctx, name, email, "", string(model.RoleStudent), h.Cfg.BcryptCost)
		if cerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		u, err = h.Users.GetByID(ctx, uid)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.respond(c, http.StatusOK, u)
}

// Refresh validates by hash, revokes the old token and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return h.respond(c, http.StatusOK, u)
}

// Logout revokes one refresh token by hash. Missing or already revoked
// tokens still return 204: logout is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
		h.Log.Error("revoke refresh failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the freshest identity for the access token. Clients call
// it on session restore instead of trusting their cached copy.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	id, err := h.identityFor(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load identity failed"})
	}
	return c.JSON(http.StatusOK, id)
}
