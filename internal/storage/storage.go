// Package storage is the durable client-side storage collaborator used
// to persist the session across restarts. Implementations must treat
// absent or corrupt entries as "not found" rather than failing: the
// session layer interprets ErrNotFound as "no stored session".
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no usable value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal key/value contract. Values are opaque bytes; the
// session layer stores JSON-encoded records under fixed keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
