package sqlstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/adapters/sqlstore"
	"github.com/noteq/noteq/pkg/core"
)

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlstore.New(db, "local")
}

func TestStore_SQLite(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	_, ok, err := s.Get(ctx, core.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, core.KeyToken, "first"))
	require.NoError(t, s.Set(ctx, core.KeyToken, "second"))
	require.NoError(t, s.Set(ctx, core.KeyUserID, "9"))

	v, ok, err := s.Get(ctx, core.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, core.KeyToken, entries[0].Name)
	assert.Equal(t, "local", entries[0].Scope)

	require.NoError(t, s.Delete(ctx, core.KeyToken))
	_, ok, err = s.Get(ctx, core.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx))
	entries, err = s.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db, err := sqlstore.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	local := sqlstore.New(db, "local")
	session := sqlstore.New(db, "session")

	require.NoError(t, local.Set(ctx, "k", "local"))
	require.NoError(t, session.Set(ctx, "k", "session"))
	require.NoError(t, session.Clear(ctx))

	v, ok, err := local.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "local", v)
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("NOTEQ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NOTEQ_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := sqlstore.Open(ctx, "postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	s := sqlstore.New(db, "test-"+t.Name())
	defer s.Clear(ctx)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}
