// Package dbtest starts a throwaway Postgres for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"OfficeSLAMonitor/internal/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

// New returns a migrated database, skipping the test when no container
// provider is reachable.
func New(t *testing.T) *sql.DB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("office_sla"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dbURL := container.MustConnectionString(ctx, "sslmode=disable")
	require.NoError(t, database.Migrate(dbURL))

	db, err := database.Open(dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}
