// Package dbtest connects repository tests to the PostgreSQL database named
// by TEST_DATABASE_URL. Tests using it are skipped when the variable is unset.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/georgemunganga/bijoux-shop/internal/platform/database"
)

// EnvURL names the variable holding the test database DSN.
const EnvURL = "TEST_DATABASE_URL"

// Open returns a migrated database, closed when the test ends. Rows are not
// cleaned up, so tests should insert uniquely named data.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skip(EnvURL + " not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zaptest.NewLogger(t)
	db, err := database.Open(ctx, url, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db, logger))
	return db
}
