package pgutil

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/chainsafe/confidential-wallet/pkg/config"
)

const (
	testImage    = "postgres:15-alpine"
	testDatabase = "wallet_test"
	testUser     = "wallet"
	testPassword = "wallet"
)

// RequireDockerAccess skips the test when no docker daemon socket is reachable
func RequireDockerAccess(t *testing.T) {
	t.Helper()

	for _, sock := range []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	} {
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{Timeout: time.Second}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}
	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed tests")
}

// SetupTestDB starts a throwaway wallet database. The container and the
// connection are released when the test finishes.
func SetupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	RequireDockerAccess(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, testImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     testUser,
		Password: testPassword,
		Database: testDatabase,
		SSLMode:  "disable",
	}

	// the port can be mapped before postgres accepts connections on it
	var db *bun.DB
	require.Eventually(t, func() bool {
		db, err = ConnectDB(ctx, cfg, nil)
		return err == nil
	}, 30*time.Second, 250*time.Millisecond, "connect to test database")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// RequireTable fails the test unless the public table name exists exactly when want is set.
func RequireTable(t *testing.T, db *bun.DB, name string, want bool) {
	t.Helper()
	var exists bool
	err := db.NewSelect().
		ColumnExpr("EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ?)", name).
		Scan(context.Background(), &exists)
	require.NoError(t, err)
	require.Equal(t, want, exists, "table %s", name)
}

func RequireIndex(t *testing.T, db *bun.DB, name string) {
	t.Helper()
	var exists bool
	err := db.NewSelect().
		ColumnExpr("EXISTS (SELECT 1 FROM pg_indexes WHERE schemaname = 'public' AND indexname = ?)", name).
		Scan(context.Background(), &exists)
	require.NoError(t, err)
	require.True(t, exists, "index %s", name)
}

// RowCount returns the number of rows in table.
func RowCount(t *testing.T, db *bun.DB, table string) int {
	t.Helper()
	n, err := db.NewSelect().TableExpr("?", bun.Ident(table)).Count(context.Background())
	require.NoError(t, err)
	return n
}
