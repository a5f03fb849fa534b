package api

import (
	"context"
	"net/http"
	"time"

	"github.com/campuseats/campuseats/internal/model"
)

// tokenPart mirrors the backend's token envelope.
type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// authResponse is the shape every credential-issuing endpoint returns.
type authResponse struct {
	User    model.Identity `json:"user"`
	Access  tokenPart      `json:"access"`
	Refresh tokenPart      `json:"refresh"`
}

func (r authResponse) credential() model.Credential {
	return model.Credential{
		AccessToken:    r.Access.Token,
		AccessExpires:  r.Access.Expires,
		RefreshToken:   r.Refresh.Token,
		RefreshExpires: r.Refresh.Expires,
	}
}

// Register creates an account and returns the issued identity and
// credential pair.
func (c *Client) Register(ctx context.Context, name, email, password string, role model.Role) (model.Identity, model.Credential, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     role,
	}, &resp, http.StatusCreated)
	if err != nil {
		return model.Identity{}, model.Credential{}, err
	}
	return resp.User, resp.credential(), nil
}

// LoginPassword exchanges email/password for a session pair.
func (c *Client) LoginPassword(ctx context.Context, email, password string) (model.Identity, model.Credential, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp, http.StatusOK)
	if err != nil {
		return model.Identity{}, model.Credential{}, err
	}
	return resp.User, resp.credential(), nil
}

// RequestOTP asks the backend to mail a one-time code to the address.
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/otp/request",
		map[string]string{"email": email}, nil, http.StatusAccepted)
}

// VerifyOTP exchanges the mailed code for a session pair. First-time
// addresses get a fresh student account.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (model.Identity, model.Credential, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/otp/verify", map[string]string{
		"email": email,
		"code":  code,
	}, &resp, http.StatusOK)
	if err != nil {
		return model.Identity{}, model.Credential{}, err
	}
	return resp.User, resp.credential(), nil
}

// Me fetches the freshest Identity for the active session. The guard
// and the wizard trust this over anything cached locally.
func (c *Client) Me(ctx context.Context) (model.Identity, error) {
	var id model.Identity
	err := c.doAuth(ctx, http.MethodGet, "/v1/auth/me", nil, &id, http.StatusOK)
	return id, err
}

// ServerLogout revokes the refresh token backend-side. Local teardown
// is the session store's job; this call failing must not block it.
func (c *Client) ServerLogout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout",
		map[string]string{"refresh_token": refreshToken}, nil, http.StatusNoContent)
}
