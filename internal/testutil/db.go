package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"casino/internal/datastore"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// GetEmptyTestDB returns a migrated in-memory database. A single connection keeps every
// statement on the same memory database.
func GetEmptyTestDB(t testing.TB) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, datastore.CreateTables(context.Background(), db))

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func EnableIntegrationTest() bool {
	return len(os.Getenv("RUN_INTEGRATION_TEST")) > 0
}
