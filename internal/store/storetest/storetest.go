// Package storetest opens throwaway SQLite databases with the schema applied.
package storetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phillip-england/recruitsuite/internal/store"
)

func Open(t testing.TB) *store.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{
		Driver:           "sqlite",
		URL:              filepath.Join(t.TempDir(), "recruits.db"),
		StatementTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.CreateTables(ctx))
	return db
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *store.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
