package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/core"
)

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := New(Config{Dir: dir})
	require.NoError(t, s.Set(ctx, core.KeyToken, "tok"))
	require.NoError(t, s.Set(ctx, core.KeyUserID, "3"))

	reopened := New(Config{Dir: dir})
	v, ok, err := reopened.Get(ctx, core.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	keys, err := reopened.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{core.KeyToken, core.KeyUserID}, keys)

	require.NoError(t, reopened.Delete(ctx, core.KeyToken))
	_, ok, err = New(Config{Dir: dir}).Get(ctx, core.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{Dir: dir, Name: "secrets"})
	require.NoError(t, s.Set(context.Background(), core.KeyToken, "tok"))

	assert.Equal(t, filepath.Join(dir, "secrets.json"), s.Path())
	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		s := New(Config{Dir: t.TempDir()})
		require.NoError(t, s.Load())
		keys, err := s.Keys()
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "local.json"), []byte("{not json"), 0o600))

		s := New(Config{Dir: dir})
		require.NoError(t, s.Load())
		keys, err := s.Keys()
		require.NoError(t, err)
		assert.Empty(t, keys)

		require.NoError(t, s.Set(context.Background(), "k", "v"))
		data, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		assert.Contains(t, string(data), `"version": 1`)
	})
}

func TestStore_ClearAndState(t *testing.T) {
	ctx := context.Background()
	s := New(Config{Dir: t.TempDir()})
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))

	state := s.State().(StoreState)
	assert.Equal(t, 2, state.Entries)
	assert.Equal(t, 2, state.Writes, "unchanged values are not rewritten")

	require.NoError(t, s.Clear(ctx))
	state = s.State().(StoreState)
	assert.Equal(t, 0, state.Entries)
	assert.Equal(t, "store", s.ComponentType())
}

func TestStore_WatchReportsExternalChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	s := New(Config{Dir: dir})
	require.NoError(t, s.Set(ctx, core.KeyToken, "old"))

	events, err := s.Watch(ctx)
	require.NoError(t, err)
	waitForWatcher(t, s, true)

	// Another process (here another Store instance) logs in.
	other := New(Config{Dir: dir})
	require.NoError(t, other.Set(ctx, core.KeyToken, "new"))

	select {
	case e := <-events:
		assert.Equal(t, core.KeyToken, e.Key)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change event")
	}

	v, _, err := s.Get(ctx, core.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(3 * time.Second):
		t.Fatal("events channel was not closed")
	}
	waitForWatcher(t, s, false)
}

func TestStore_WatchIgnoresOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{Dir: t.TempDir()})
	events, err := s.Watch(ctx)
	require.NoError(t, err)
	waitForWatcher(t, s, true)

	require.NoError(t, s.Set(ctx, "k", "v"))

	select {
	case e := <-events:
		t.Fatalf("unexpected event for own write: %+v", e)
	case <-time.After(300 * time.Millisecond):
	}
}
