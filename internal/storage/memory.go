package storage

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store used by tests and as a fallback when
// no durable path is configured (sessions then last one process run).
type MemStore struct {
	mu      sync.Mutex
	entries map[string][]byte

	// FailSet, when set, is returned from Set. Tests use it to
	// exercise persistence failure paths.
	FailSet error
}

func NewMemStore() *MemStore {
	return &MemStore{entries: map[string][]byte{}}
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.entries[key] = cp
	return nil
}

func (m *MemStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Put seeds a key directly; test helper.
func (m *MemStore) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}
