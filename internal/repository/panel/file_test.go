package panel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFileCache_NotFound verifies GetBool returns ErrNotFound for a missing file.
func TestFileCache_NotFound(t *testing.T) {
	t.Parallel()

	cache := NewFileCache(filepath.Join(t.TempDir(), "missing.json"))

	_, err := cache.GetBool(context.Background(), "panel_armed")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestFileCache_SetGet_Roundtrip ensures values survive a fresh cache instance.
func TestFileCache_SetGet_Roundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "cache.json")

	require.NoError(t, NewFileCache(file).SetBool(ctx, "panel_armed", false))

	reopened := NewFileCache(file)

	got, err := reopened.GetBool(ctx, "panel_armed")
	require.NoError(t, err)
	require.False(t, got)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestFileCache_KeepsForeignKeys preserves keys written by other tools and rejects non-booleans.
func TestFileCache_KeepsForeignKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "cache.json")

	require.NoError(t, os.WriteFile(file, []byte(`{"owner": "ops", "panel_armed": true}`), 0o600))

	cache := NewFileCache(file)

	_, err := cache.GetBool(ctx, "owner")
	require.ErrorIs(t, err, errNotBool)

	require.NoError(t, cache.SetBool(ctx, "panel_armed", false))

	// A fresh instance still sees the foreign key next to the rewritten flag.
	reopened := NewFileCache(file)

	_, err = reopened.GetBool(ctx, "owner")
	require.ErrorIs(t, err, errNotBool)

	got, err := reopened.GetBool(ctx, "panel_armed")
	require.NoError(t, err)
	require.False(t, got)
}

// TestFileCache_Corrupt reports decode failures.
func TestFileCache_Corrupt(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(file, []byte(`{not json`), 0o600))

	_, err := NewFileCache(file).GetBool(context.Background(), "panel_armed")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestFileCache_FailedWriteKeepsValue ensures a value that could not be
// persisted is never served.
func TestFileCache_FailedWriteKeepsValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "cache.json")
	cache := NewFileCache(file)

	require.NoError(t, cache.SetBool(ctx, "panel_armed", true))

	// A directory in place of the file makes every write fail.
	require.NoError(t, os.Remove(file))
	require.NoError(t, os.Mkdir(file, 0o700))

	require.Error(t, cache.SetBool(ctx, "panel_armed", false))

	got, err := cache.GetBool(ctx, "panel_armed")
	require.NoError(t, err)
	require.True(t, got)

	require.Error(t, cache.SetBool(ctx, "owner", true))

	_, err = cache.GetBool(ctx, "owner")
	require.ErrorIs(t, err, ErrNotFound)
}
