// Package api is the HTTP client for the campus backend. It attaches
// the session's bearer credential to authenticated calls, rotates the
// access token through the refresh endpoint when it is about to lapse,
// and translates an authoritative 401 into the session store's
// unauthorized hook. The store guarantees the hook fires once per
// occurrence.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/session"
)

// ErrUnauthorized is returned when the backend rejected the credential
// and the session was torn down.
var ErrUnauthorized = errors.New("api: unauthorized")

// ErrNoSession is returned from authenticated calls when nobody is
// logged in.
var ErrNoSession = errors.New("api: no active session")

// refreshWindow is how close to expiry the access token may get before
// a call proactively refreshes it.
const refreshWindow = 30 * time.Second

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client talks to the backend. All methods take a context and return
// wrapped errors; transient failures are plain errors the caller may
// retry.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Store
	log     *slog.Logger
}

// New builds a Client. The session store supplies bearer tokens and
// receives the unauthorized hook.
func New(baseURL string, sess *session.Store, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: sess,
		log:     log,
	}
}

// do performs an unauthenticated request. body is JSON-encoded when
// non-nil; the response is decoded into out when out is non-nil and
// the status matches want.
func (c *Client) do(ctx context.Context, method, path string, body, out any, want int) error {
	return c.send(ctx, method, path, "", body, out, want)
}

// doAuth performs an authenticated request, refreshing the access
// token first when it is about to expire. A 401 fires the session
// store's unauthorized hook and surfaces as ErrUnauthorized.
func (c *Client) doAuth(ctx context.Context, method, path string, body, out any, want int) error {
	cred, ok := c.session.Credential()
	if !ok {
		return ErrNoSession
	}
	if cred.ExpiresWithin(refreshWindow) && cred.RefreshToken != "" {
		if fresh, err := c.refreshCredential(ctx, cred.RefreshToken); err == nil {
			cred = fresh
		} else {
			// Let the backend be the judge of the old token.
			c.log.Debug("token refresh failed", "err", err)
		}
	}

	err := c.send(ctx, method, path, cred.AccessToken, body, out, want)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.session.HandleUnauthorized(ctx)
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	}
	return err
}

// refreshCredential exchanges the refresh token for a new pair and
// re-installs it under the current identity.
func (c *Client) refreshCredential(ctx context.Context, refreshToken string) (model.Credential, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": refreshToken}, &resp, http.StatusOK); err != nil {
		return model.Credential{}, fmt.Errorf("refresh: %w", err)
	}
	fresh := resp.credential()
	id := c.session.Identity()
	if id == nil {
		return model.Credential{}, ErrNoSession
	}
	if err := c.session.Login(ctx, *id, fresh); err != nil {
		return model.Credential{}, err
	}
	return fresh, nil
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any, want int) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return &Error{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the backend's {"error": "..."} body, falling
// back to the raw text.
func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = "request failed"
	}
	return msg
}
