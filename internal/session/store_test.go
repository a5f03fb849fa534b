package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func student(id uint64) model.Identity {
	return model.Identity{ID: id, Name: "Asha", Email: "asha@campus.test", Role: model.RoleStudent, OnboardingStep: 1}
}

func cred(token string) model.Credential {
	return model.Credential{AccessToken: token, RefreshToken: "r-" + token}
}

// observerLog records every notification the store fans out.
type observerLog struct {
	events []*model.Identity
}

func (o *observerLog) observe(id *model.Identity) { o.events = append(o.events, id) }

func TestRestoreEmptyStorage(t *testing.T) {
	t.Parallel()

	s := NewStore(storage.NewMemStore(), testLogger())
	require.False(t, s.Restored())

	s.Restore(context.Background())

	require.True(t, s.Restored())
	require.Nil(t, s.Identity())
	_, ok := s.Credential()
	require.False(t, ok)
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := storage.NewMemStore()

	first := NewStore(mem, testLogger())
	require.NoError(t, first.Login(ctx, student(7), cred("tok")))

	// A second store over the same storage sees the session.
	second := NewStore(mem, testLogger())
	var obs observerLog
	second.Subscribe(obs.observe)
	second.Restore(ctx)

	id := second.Identity()
	require.NotNil(t, id)
	require.Equal(t, uint64(7), id.ID)
	require.Equal(t, model.RoleStudent, id.Role)
	got, ok := second.Credential()
	require.True(t, ok)
	require.Equal(t, "tok", got.AccessToken)
	require.Len(t, obs.events, 1, "restore of a live session notifies observers once")
}

func TestRestoreToleratesCorruptEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := storage.NewMemStore()
	mem.Put("identity", []byte("{broken"))
	mem.Put("credential", []byte(`{"access_token":"x"}`))

	s := NewStore(mem, testLogger())
	s.Restore(ctx)

	require.True(t, s.Restored())
	require.Nil(t, s.Identity())

	// The corrupt pair was cleared, not left to poison the next run.
	_, err := mem.Get(ctx, "identity")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = mem.Get(ctx, "credential")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestoreDropsHalfPresentPair(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := storage.NewMemStore()
	raw, err := json.Marshal(student(3))
	require.NoError(t, err)
	mem.Put("identity", raw) // credential missing

	s := NewStore(mem, testLogger())
	s.Restore(ctx)

	require.Nil(t, s.Identity(), "identity without credential must not be observable")
	_, err = mem.Get(ctx, "identity")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	s := NewStore(storage.NewMemStore(), testLogger())
	bad := student(1)
	bad.Role = "superuser"
	require.ErrorIs(t, s.Login(context.Background(), bad, cred("t")), ErrBadIdentity)
	require.Nil(t, s.Identity())
}

func TestLogoutIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(storage.NewMemStore(), testLogger())
	var obs observerLog
	s.Subscribe(obs.observe)

	require.NoError(t, s.Login(ctx, student(2), cred("t")))
	s.Logout(ctx)
	s.Logout(ctx)

	// One login notification, one logout notification; the second
	// logout was a no-op.
	require.Len(t, obs.events, 2)
	require.NotNil(t, obs.events[0])
	require.Nil(t, obs.events[1])
}

func TestUnauthorizedHookFiresOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(storage.NewMemStore(), testLogger())
	var notices []string
	s.SetNoticeFunc(func(msg string) { notices = append(notices, msg) })
	var obs observerLog
	s.Subscribe(obs.observe)

	require.NoError(t, s.Login(ctx, student(4), cred("t")))

	// Two API calls fail with 401 back to back.
	s.HandleUnauthorized(ctx)
	s.HandleUnauthorized(ctx)

	require.Len(t, notices, 1)
	require.Len(t, obs.events, 2) // login + single logout
	require.Nil(t, s.Identity())
}

func TestUnauthorizedHookConcurrentCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(storage.NewMemStore(), testLogger())

	var mu sync.Mutex
	notices := 0
	s.SetNoticeFunc(func(string) {
		mu.Lock()
		notices++
		mu.Unlock()
	})

	require.NoError(t, s.Login(ctx, student(10), cred("t")))

	// Several in-flight requests observe the same 401 at once.
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.HandleUnauthorized(ctx)
		}()
	}
	close(start)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, notices, "concurrent 401s must surface one notice")
	require.Nil(t, s.Identity())
}

func TestCredentialRotationDoesNotRebind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(storage.NewMemStore(), testLogger())
	var obs observerLog
	s.Subscribe(obs.observe)

	require.NoError(t, s.Login(ctx, student(5), cred("old")))
	require.NoError(t, s.Login(ctx, student(5), cred("new")))

	require.Len(t, obs.events, 1, "same identity with a fresh token must not re-notify")
	tok, ok := s.Token()
	require.True(t, ok)
	require.Equal(t, "new", tok)
}

func TestCanteenLinkTriggersNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(storage.NewMemStore(), testLogger())
	var obs observerLog
	s.Subscribe(obs.observe)

	owner := model.Identity{ID: 9, Role: model.RoleCanteenOwner, OnboardingStep: 3}
	require.NoError(t, s.Login(ctx, owner, cred("t")))

	canteenID := uint64(12)
	linked := owner
	linked.CanteenID = &canteenID
	require.NoError(t, s.Login(ctx, linked, cred("t")))

	require.Len(t, obs.events, 2, "linking a canteen changes room membership")
	require.NotNil(t, obs.events[1].CanteenID)
}

func TestIdentityReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(storage.NewMemStore(), testLogger())
	require.NoError(t, s.Login(ctx, student(6), cred("t")))

	got := s.Identity()
	got.Name = "mutated"
	require.Equal(t, "Asha", s.Identity().Name)
}

func TestLoginSurvivesPersistFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := storage.NewMemStore()
	mem.FailSet = context.DeadlineExceeded

	s := NewStore(mem, testLogger())
	err := s.Login(ctx, student(8), cred("t"))
	require.Error(t, err)

	// The in-memory session is live even though persistence failed.
	require.NotNil(t, s.Identity())
}
