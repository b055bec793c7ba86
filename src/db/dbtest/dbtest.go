// Package dbtest gives tests a freshly migrated, throwaway Postgres schema.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwall/snapwall/src/migration"
	"github.com/snapwall/snapwall/src/migration/types"
	"github.com/stretchr/testify/require"
)

const DSNVar = "SNAPWALL_TEST_DATABASE_URL"

/*
Open connects to the database named by SNAPWALL_TEST_DATABASE_URL, creates a
new schema, and migrates it to the latest version. The schema is dropped when
the test finishes. Tests are skipped when the variable is unset.
*/
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(DSNVar)
	if dsn == "" {
		t.Skipf("%s is not set; skipping database test", DSNVar)
	}

	ctx := context.Background()
	schema := "test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		admin.Close(ctx)
	})

	require.NoError(t, migration.Migrate(ctx, pool, types.MigrationVersion{}))
	return pool
}
