package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/patentdb/internal/config"
	"github.com/turtacn/patentdb/internal/infrastructure/database/gormstore"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
)

// NewSQLiteStore opens a migrated store on a fresh SQLite file in a
// per-test directory.  It is closed when the test ends.
func NewSQLiteStore(t testing.TB) *gormstore.Store {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "patentdb.sqlite3"),
		AutoMigrate: true,
	}
	store, err := gormstore.Open(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// CountRows returns the number of rows in model's table.
func CountRows(t testing.TB, s *gormstore.Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(model).Count(&n).Error)
	return n
}

//Personal.AI order the ending
