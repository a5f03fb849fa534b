package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuseats/campuseats/internal/model"
)

// fakeTransport hands out fakeConns and tracks how many are alive.
type fakeTransport struct {
	mu          sync.Mutex
	alive       int
	maxAlive    int
	conns       []*fakeConn
	failNext    bool
	joinErrNext error
	lastSink    Handler
}

func (f *fakeTransport) Connect(_ context.Context, sink Handler) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errors.New("broker down")
	}
	c := &fakeConn{owner: f, joinErr: f.joinErrNext}
	f.joinErrNext = nil
	f.alive++
	if f.alive > f.maxAlive {
		f.maxAlive = f.alive
	}
	f.conns = append(f.conns, c)
	f.lastSink = sink
	return c, nil
}

type fakeConn struct {
	owner    *fakeTransport
	mu       sync.Mutex
	rooms    []string
	closed   bool
	joinErr  error
	closeSeq int
}

func (c *fakeConn) Join(room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joinErr != nil {
		return c.joinErr
	}
	c.rooms = append(c.rooms, room)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.owner.mu.Lock()
	c.owner.alive--
	c.closeSeq = len(c.owner.conns) // position in lifecycle, for ordering checks
	c.owner.mu.Unlock()
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func studentID(id uint64) *model.Identity {
	return &model.Identity{ID: id, Role: model.RoleStudent}
}

func ownerID(id uint64, canteen *uint64) *model.Identity {
	return &model.Identity{ID: id, Role: model.RoleCanteenOwner, CanteenID: canteen}
}

func TestBinderSingleConnectionAcrossLifecycle(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	b := NewBinder(ft, discard())

	// login -> logout -> login as a different user
	b.OnIdentityChanged(studentID(1))
	b.OnIdentityChanged(nil)
	b.OnIdentityChanged(studentID(2))
	b.OnIdentityChanged(studentID(3)) // direct identity swap, no logout between

	require.Equal(t, 1, ft.maxAlive, "at most one connection may ever be alive")
	require.Equal(t, 1, ft.alive)
	require.True(t, b.Connected())

	// The live connection is scoped to the latest identity.
	last := ft.conns[len(ft.conns)-1]
	require.Equal(t, []string{UserRoom(3)}, last.rooms)

	b.Close()
	require.Equal(t, 0, ft.alive)
	require.False(t, b.Connected())
}

func TestBinderTeardownBeforeSetup(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	b := NewBinder(ft, discard())

	b.OnIdentityChanged(studentID(1))
	first := ft.conns[0]
	b.OnIdentityChanged(studentID(2))

	// The first connection was closed before the second was opened:
	// at close time only one connection had ever been created.
	require.True(t, first.closed)
	require.Equal(t, 1, first.closeSeq)
	require.Len(t, ft.conns, 2)
}

func TestBinderOwnerRooms(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	b := NewBinder(ft, discard())

	// Mid-onboarding owner: no canteen linked yet, connect but join
	// nothing.
	b.OnIdentityChanged(ownerID(5, nil))
	require.True(t, b.Connected())
	require.Empty(t, ft.conns[0].rooms)

	// Canteen linked: rebind joins the canteen room.
	canteen := uint64(42)
	b.OnIdentityChanged(ownerID(5, &canteen))
	require.Equal(t, []string{CanteenRoom(42)}, ft.conns[1].rooms)
	require.Equal(t, 1, ft.alive)
}

func TestBinderConnectFailureNonFatal(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{failNext: true}
	b := NewBinder(ft, discard())

	b.OnIdentityChanged(studentID(1)) // must not panic
	require.False(t, b.Connected())

	// Next identity change retries and succeeds.
	b.OnIdentityChanged(studentID(1))
	require.True(t, b.Connected())
}

func TestBinderJoinFailureClosesConn(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	b := NewBinder(ft, discard())

	b.OnIdentityChanged(studentID(1))
	ft.joinErrNext = errors.New("bind refused")
	b.OnIdentityChanged(studentID(2))

	require.False(t, b.Connected())
	require.Equal(t, 0, ft.alive, "a connection that failed to join must not leak")
}

func TestBinderDispatchAndOff(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	b := NewBinder(ft, discard())
	b.OnIdentityChanged(studentID(1))

	var got []string
	off := b.On(EventOrderStatus, func(event string, payload []byte) {
		got = append(got, event+":"+string(payload))
	})
	b.On(EventStockChanged, func(event string, payload []byte) {
		got = append(got, event)
	})

	ft.lastSink(EventOrderStatus, []byte(`{"order_id":1}`))
	ft.lastSink(EventStockChanged, []byte(`{}`))
	ft.lastSink("unknown.event", []byte(`{}`)) // no listener, silently dropped

	require.Equal(t, []string{EventOrderStatus + `:{"order_id":1}`, EventStockChanged}, got)

	off()
	ft.lastSink(EventOrderStatus, []byte(`{}`))
	require.Len(t, got, 2, "removed listener no longer receives events")
}
