package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/session"
	"github.com/campuseats/campuseats/internal/storage"
)

func newTestSession(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(storage.NewMemStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func liveCredential() model.Credential {
	return model.Credential{
		AccessToken:    "access-token",
		AccessExpires:  time.Now().Add(time.Hour),
		RefreshToken:   "refresh-token",
		RefreshExpires: time.Now().Add(24 * time.Hour),
	}
}

func TestVerifyOTPParsesEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/auth/otp/verify", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "amir@campus.edu", body["email"])
		require.Equal(t, "482913", body["code"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": 7, "name": "Amir", "email": "amir@campus.edu", "role": "student"},
			"access": map[string]any{
				"token":   "at-1",
				"expires": time.Now().Add(15 * time.Minute).Format(time.RFC3339),
			},
			"refresh": map[string]any{
				"token":   "rt-1",
				"expires": time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339),
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, newTestSession(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	id, cred, err := c.VerifyOTP(context.Background(), "amir@campus.edu", "482913")
	require.NoError(t, err)
	require.Equal(t, uint64(7), id.ID)
	require.Equal(t, model.RoleStudent, id.Role)
	require.Equal(t, "at-1", cred.AccessToken)
	require.Equal(t, "rt-1", cred.RefreshToken)
}

func TestAuthRequestCarriesBearer(t *testing.T) {
	t.Parallel()

	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sess := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, model.Identity{ID: 3, Role: model.RoleStudent}, liveCredential()))

	c := New(srv.URL, sess, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, c.SaveStep(ctx, 1, map[string]any{"phone": "9876543210"}))
	require.Equal(t, "Bearer access-token", gotAuth.Load())
}

func TestAuthRequestWithoutSession(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:0", newTestSession(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := c.SaveStep(context.Background(), 1, nil)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestUnauthorizedFiresHookOnce(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "token revoked"})
	}))
	defer srv.Close()

	sess := newTestSession(t)
	var notices []string
	sess.SetNoticeFunc(func(msg string) { notices = append(notices, msg) })

	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, model.Identity{ID: 3, Role: model.RoleStudent}, liveCredential()))

	c := New(srv.URL, sess, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Me(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Session is gone, so the second call never reaches the server and
	// the notice is not repeated.
	_, err = c.Me(ctx)
	require.ErrorIs(t, err, ErrNoSession)
	require.Len(t, notices, 1)
	require.Nil(t, sess.Identity())
}

func TestProactiveRefreshBeforeExpiry(t *testing.T) {
	t.Parallel()

	var refreshes, mes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/refresh":
			refreshes.Add(1)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			require.Equal(t, "old-refresh", body["refresh_token"])
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]any{"id": 3, "role": "student"},
				"access": map[string]any{
					"token":   "fresh-access",
					"expires": time.Now().Add(15 * time.Minute).Format(time.RFC3339),
				},
				"refresh": map[string]any{
					"token":   "fresh-refresh",
					"expires": time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339),
				},
			})
		case "/v1/auth/me":
			mes.Add(1)
			require.Equal(t, "Bearer fresh-access", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(model.Identity{ID: 3, Role: model.RoleStudent})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	sess := newTestSession(t)
	ctx := context.Background()
	nearExpiry := model.Credential{
		AccessToken:    "stale-access",
		AccessExpires:  time.Now().Add(5 * time.Second),
		RefreshToken:   "old-refresh",
		RefreshExpires: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, sess.Login(ctx, model.Identity{ID: 3, Role: model.RoleStudent}, nearExpiry))

	c := New(srv.URL, sess, slog.New(slog.NewTextHandler(io.Discard, nil)))
	id, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), id.ID)
	require.Equal(t, int32(1), refreshes.Load())
	require.Equal(t, int32(1), mes.Load())

	cred, ok := sess.Credential()
	require.True(t, ok)
	require.Equal(t, "fresh-access", cred.AccessToken)
}

func TestBackendErrorMessageSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "email already registered"})
	}))
	defer srv.Close()

	c := New(srv.URL, newTestSession(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, _, err := c.Register(context.Background(), "A", "a@b.edu", "pw12345678", model.RoleStudent)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "email already registered", apiErr.Message)
}
