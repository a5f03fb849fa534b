// Package navigation abstracts the client's notion of "where the user
// is" so the router guard can be exercised without any UI framework.
package navigation

import "sync"

// Navigator reads the current path and performs imperative redirects.
type Navigator interface {
	Path() string
	RedirectTo(path string)
}

// Memory is the in-process Navigator used by campusctl and by tests.
// It records every redirect so tests can assert on navigation history.
type Memory struct {
	mu      sync.Mutex
	current string
	history []string
}

// NewMemory starts at the given path ("/" when empty).
func NewMemory(start string) *Memory {
	if start == "" {
		start = "/"
	}
	return &Memory{current: start, history: []string{start}}
}

func (m *Memory) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Memory) RedirectTo(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = path
	m.history = append(m.history, path)
}

// History returns a copy of every path visited, in order.
func (m *Memory) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}
