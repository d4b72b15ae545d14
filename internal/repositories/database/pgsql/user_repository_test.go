package pgsql

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	portsrepo "github.com/SscSPs/therapy_app/internal/core/ports/repositories"
	"github.com/SscSPs/therapy_app/internal/repositories/repotest"
	"github.com/SscSPs/therapy_app/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsURL points golang-migrate at ./migrations regardless of the working directory.
func migrationsURL() string {
	_, thisFile, _, _ := runtime.Caller(0)
	root := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", "..", ".."))
	return "file://" + filepath.Join(root, "migrations")
}

// startPostgres brings up a throwaway PostgreSQL, applies the migrations and
// returns a pool over it. Run with
// GO_TEST_INTEGRATION=1 go test ./internal/repositories/database/pgsql -v -count=1
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	require.NoError(t, database.RunMigrations(dsn, migrationsURL(), slog.Default()))

	pool, err := database.NewPgxPool(ctx, dsn, true)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPgxUserRepository_Contract(t *testing.T) {
	pool := startPostgres(t)
	repotest.RunUserRepositoryContract(t, func(t *testing.T) portsrepo.UserRepositoryFacade {
		_, err := pool.Exec(context.Background(), "TRUNCATE users")
		require.NoError(t, err)
		return NewRepositoryProvider(pool).UserRepo
	})
}
