package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.Set(ctx, "identity", []byte(`{"id":1}`)))
	require.NoError(t, fs.Set(ctx, "credential", []byte(`{"access_token":"x"}`)))

	// A fresh store over the same file sees the persisted values.
	fs2 := NewFileStore(path)
	v, err := fs2.Get(ctx, "identity")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1}`, string(v))

	require.NoError(t, fs2.Remove(ctx, "identity"))
	_, err = fs2.Get(ctx, "identity")
	require.ErrorIs(t, err, ErrNotFound)

	// The other key survives the removal.
	v, err = fs2.Get(ctx, "credential")
	require.NoError(t, err)
	require.JSONEq(t, `{"access_token":"x"}`, string(v))
}

func TestFileStoreMissingFile(t *testing.T) {
	t.Parallel()

	fs := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	_, err := fs.Get(context.Background(), "identity")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreCorruptFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	fs := NewFileStore(path)
	_, err := fs.Get(ctx, "identity")
	require.ErrorIs(t, err, ErrNotFound)

	// Writing over a corrupt file recovers it.
	require.NoError(t, fs.Set(ctx, "identity", []byte(`{"id":7}`)))
	v, err := fs.Get(ctx, "identity")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7}`, string(v))
}

func TestFileStoreRemoveMissingKey(t *testing.T) {
	t.Parallel()

	fs := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, fs.Remove(context.Background(), "nope"))
}
