package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all keys in a single JSON file, the way the original
// browser client used localStorage. Every mutation rewrites the whole
// file via a temp-file rename so a crash mid-write leaves either the
// old or the new content, never a torn file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the given file path. The file
// is created lazily on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.read()
	v, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.read()
	entries[key] = json.RawMessage(value)
	return f.write(entries)
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.read()
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.write(entries)
}

// read loads the backing file. A missing or unparsable file yields an
// empty map: corrupt storage must look like an absent session, not an
// error.
func (f *FileStore) read() map[string]json.RawMessage {
	entries := map[string]json.RawMessage{}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		return map[string]json.RawMessage{}
	}
	return entries
}

func (f *FileStore) write(entries map[string]json.RawMessage) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp storage file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close storage file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod storage file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}
