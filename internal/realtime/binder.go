package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/campuseats/campuseats/internal/model"
)

// Handler receives a dispatched event. Payload is the raw JSON body;
// handlers decode what they care about.
type Handler func(event string, payload []byte)

// Conn is one live connection to the realtime transport.
type Conn interface {
	// Join subscribes the connection to a logical room.
	Join(room string) error
	// Close tears the connection down. Must be safe to call twice.
	Close() error
}

// Transport opens connections. Inbound events are delivered to the
// sink passed at connect time.
type Transport interface {
	Connect(ctx context.Context, sink Handler) (Conn, error)
}

// Binder maintains at most one live transport connection, scoped to
// the current identity and joined to that identity's rooms. It is a
// pure dispatcher: inbound events are forwarded to subscribed
// listeners without interpretation.
//
// Wire it to a session store with:
//
//	cancel := sess.Subscribe(binder.OnIdentityChanged)
type Binder struct {
	transport Transport
	log       *slog.Logger

	mu        sync.Mutex
	conn      Conn
	listeners map[string]map[int]Handler
	nextID    int
}

// NewBinder builds a Binder over the given transport.
func NewBinder(transport Transport, log *slog.Logger) *Binder {
	if log == nil {
		log = slog.Default()
	}
	return &Binder{
		transport: transport,
		log:       log,
		listeners: map[string]map[int]Handler{},
	}
}

// On registers a listener for one event name and returns its cancel
// function (the "off" half of the contract).
func (b *Binder) On(event string, fn Handler) (off func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.listeners[event] == nil {
		b.listeners[event] = map[int]Handler{}
	}
	b.listeners[event][id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.listeners[event], id)
		b.mu.Unlock()
	}
}

// OnIdentityChanged rebinds the connection for a new identity. The
// previous connection is fully closed before a new one is opened, so
// two connections are never alive at once. Connection failures are
// non-fatal: they are logged and the client keeps working without push
// updates.
func (b *Binder) OnIdentityChanged(id *model.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Teardown first, on every path.
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			b.log.Warn("realtime close failed", "err", err)
		}
		b.conn = nil
	}
	if id == nil {
		return
	}

	conn, err := b.transport.Connect(context.Background(), b.dispatch)
	if err != nil {
		b.log.Warn("realtime connect failed", "err", err)
		return
	}

	if err := b.join(conn, id); err != nil {
		b.log.Warn("realtime join failed", "err", err)
		_ = conn.Close()
		return
	}
	b.conn = conn
}

// join subscribes the connection to the rooms for this identity.
// Students get their personal room; canteen owners get their canteen's
// room, or nothing yet while the canteen is unlinked mid-onboarding.
func (b *Binder) join(conn Conn, id *model.Identity) error {
	switch id.Role {
	case model.RoleStudent:
		if err := conn.Join(UserRoom(id.ID)); err != nil {
			return fmt.Errorf("join %s: %w", UserRoom(id.ID), err)
		}
	case model.RoleCanteenOwner:
		if id.CanteenID == nil {
			return nil
		}
		if err := conn.Join(CanteenRoom(*id.CanteenID)); err != nil {
			return fmt.Errorf("join %s: %w", CanteenRoom(*id.CanteenID), err)
		}
	}
	return nil
}

// Close releases the active connection. Called on application
// teardown; identity swaps and logout release through
// OnIdentityChanged.
func (b *Binder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			b.log.Warn("realtime close failed", "err", err)
		}
		b.conn = nil
	}
}

// Connected reports whether a connection is currently live.
func (b *Binder) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// dispatch fans an inbound event out to its listeners.
func (b *Binder) dispatch(event string, payload []byte) {
	b.mu.Lock()
	fns := make([]Handler, 0, len(b.listeners[event]))
	for _, fn := range b.listeners[event] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(event, payload)
	}
}
