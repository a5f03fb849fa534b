// Package session is the single source of truth for "who is logged
// in". The Store owns the (identity, credential) pair: every other
// component reads it through accessors and mutates it only through
// Login, Logout and the unauthorized hook. Identity changes are pushed
// to subscribed observers (the realtime binder, the UI) after the pair
// has been swapped, so observers always read a consistent state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/storage"
)

const (
	identityKey   = "identity"
	credentialKey = "credential"
)

// ErrBadIdentity is returned by Login when the identity record is not
// usable (unknown role or zero id).
var ErrBadIdentity = errors.New("session: identity has no valid role or id")

// Observer is invoked after the active identity changes. A nil
// identity means logged out. Observers run on the mutating goroutine,
// outside the store's lock; they may call the store's read accessors
// but must not call Login/Logout re-entrantly.
type Observer func(id *model.Identity)

// Store holds the session state. The zero value is not usable; create
// one with NewStore.
type Store struct {
	storage storage.Store
	log     *slog.Logger
	notice  func(msg string)

	mu         sync.Mutex
	identity   *model.Identity
	credential *model.Credential
	restored   bool
	observers  map[int]Observer
	nextObs    int
}

// NewStore builds a Store over the given durable storage.
func NewStore(st storage.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		storage:   st,
		log:       log,
		observers: map[int]Observer{},
	}
}

// SetNoticeFunc installs the sink for user-visible notices (e.g.
// "session expired"). Without one, notices go to the logger only.
func (s *Store) SetNoticeFunc(fn func(msg string)) {
	s.mu.Lock()
	s.notice = fn
	s.mu.Unlock()
}

// Subscribe registers an observer and returns its cancel function.
func (s *Store) Subscribe(obs Observer) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = obs
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Restore loads a persisted session, if any. It never fails: corrupt
// or partial storage reads as "no stored session" and leftover entries
// are cleared so the next restore is clean. After Restore returns, the
// restoration flag is set regardless of outcome and dependent
// components may start making decisions.
func (s *Store) Restore(ctx context.Context) {
	id, cred := s.readStored(ctx)

	s.mu.Lock()
	if id != nil && cred != nil {
		s.identity = id
		s.credential = cred
	}
	s.restored = true
	loggedIn := s.identity != nil
	obs, snapshot := s.observersAndIdentity()
	s.mu.Unlock()

	if loggedIn {
		s.log.Info("session restored", "user_id", snapshot.ID, "role", snapshot.Role)
		fanout(obs, snapshot)
	}
}

// readStored pulls both entries from storage, tolerating anything.
func (s *Store) readStored(ctx context.Context) (*model.Identity, *model.Credential) {
	rawID, errID := s.storage.Get(ctx, identityKey)
	rawCred, errCred := s.storage.Get(ctx, credentialKey)
	if errID != nil || errCred != nil {
		// A half-present pair must never become observable; drop both.
		if errID == nil || errCred == nil {
			_ = s.storage.Remove(ctx, identityKey)
			_ = s.storage.Remove(ctx, credentialKey)
		}
		return nil, nil
	}

	var id model.Identity
	var cred model.Credential
	if json.Unmarshal(rawID, &id) != nil || json.Unmarshal(rawCred, &cred) != nil ||
		!id.Role.Valid() || id.ID == 0 || cred.AccessToken == "" {
		_ = s.storage.Remove(ctx, identityKey)
		_ = s.storage.Remove(ctx, credentialKey)
		return nil, nil
	}
	return &id, &cred
}

// Login installs a new (identity, credential) pair, persists it, and
// notifies observers when the effective identity changed. It is also
// the path for credential rotation: calling Login with the same
// identity and a fresh credential swaps tokens without a rebind. The
// in-memory pair is always installed; a persistence failure is
// returned so the caller can surface it, but does not undo the login.
func (s *Store) Login(ctx context.Context, id model.Identity, cred model.Credential) error {
	if !id.Role.Valid() || id.ID == 0 {
		return ErrBadIdentity
	}

	s.mu.Lock()
	changed := identityChanged(s.identity, &id)
	idCopy := id
	credCopy := cred
	s.identity = &idCopy
	s.credential = &credCopy
	s.restored = true
	obs, snapshot := s.observersAndIdentity()
	s.mu.Unlock()

	if changed {
		fanout(obs, snapshot)
	}

	if err := s.persist(ctx, id, cred); err != nil {
		s.log.Warn("session persist failed", "err", err)
		return err
	}
	return nil
}

func (s *Store) persist(ctx context.Context, id model.Identity, cred model.Credential) error {
	rawID, err := json.Marshal(id)
	if err != nil {
		return err
	}
	rawCred, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, identityKey, rawID); err != nil {
		return err
	}
	return s.storage.Set(ctx, credentialKey, rawCred)
}

// Logout clears the session. Idempotent: a second call (or a
// concurrent unauthorized signal) finds no identity and does nothing,
// so observers see exactly one logged-out notification per session.
func (s *Store) Logout(ctx context.Context) {
	uid, obs, ok := s.takeSession()
	if !ok {
		return
	}
	s.teardown(ctx, uid, obs)
}

// HandleUnauthorized is the hook the API layer fires when the backend
// reports the credential as expired or invalid. The identity is swapped
// out under a single lock acquisition, so of any number of in-flight
// requests failing the same way, exactly one surfaces the notice and
// tears the session down; the rest are no-ops.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	uid, obs, ok := s.takeSession()
	if !ok {
		return
	}
	s.mu.Lock()
	notice := s.notice
	s.mu.Unlock()

	msg := "your session has expired, please log in again"
	if notice != nil {
		notice(msg)
	} else {
		s.log.Warn(msg)
	}
	s.teardown(ctx, uid, obs)
}

// takeSession removes the in-memory pair atomically. ok is false when
// no session was active, which is what makes Logout and the
// unauthorized hook exactly-once under concurrent callers.
func (s *Store) takeSession() (uid uint64, obs []Observer, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return 0, nil, false
	}
	uid = s.identity.ID
	s.identity = nil
	s.credential = nil
	obs, _ = s.observersAndIdentity()
	return uid, obs, true
}

// teardown finishes a clear: durable entries removed, observers told.
func (s *Store) teardown(ctx context.Context, uid uint64, obs []Observer) {
	_ = s.storage.Remove(ctx, identityKey)
	_ = s.storage.Remove(ctx, credentialKey)
	s.log.Info("session cleared", "user_id", uid)
	fanout(obs, nil)
}

// Restored reports whether startup restoration has completed. Until it
// has, the router guard must render a loading state and make no
// redirect decision.
func (s *Store) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// Identity returns a copy of the active identity, or nil.
func (s *Store) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIdentity(s.identity)
}

// Credential returns the active credential, if any.
func (s *Store) Credential() (model.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil {
		return model.Credential{}, false
	}
	return *s.credential, true
}

// Token returns the bearer token to attach to API calls.
func (s *Store) Token() (string, bool) {
	cred, ok := s.Credential()
	if !ok {
		return "", false
	}
	return cred.AccessToken, true
}

// observersAndIdentity snapshots both under the held lock.
func (s *Store) observersAndIdentity() ([]Observer, *model.Identity) {
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	return obs, cloneIdentity(s.identity)
}

func fanout(obs []Observer, id *model.Identity) {
	for _, o := range obs {
		o(cloneIdentity(id))
	}
}

// identityChanged reports whether the switch from old to new should
// rebind realtime channels: a different user, a different role, or a
// newly linked canteen all change room membership. A pure token
// refresh (same identity) does not.
func identityChanged(prev, next *model.Identity) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	return prev.ID != next.ID ||
		prev.Role != next.Role ||
		!uint64PtrEq(prev.CanteenID, next.CanteenID)
}

func uint64PtrEq(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneIdentity(id *model.Identity) *model.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	if id.CollegeID != nil {
		v := *id.CollegeID
		cp.CollegeID = &v
	}
	if id.CanteenID != nil {
		v := *id.CanteenID
		cp.CanteenID = &v
	}
	return &cp
}
