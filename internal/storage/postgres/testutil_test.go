package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// One container serves the whole package; tables are truncated per test.
var shared struct {
	once      sync.Once
	container *postgres.PostgresContainer
	pool      *Pool
	err       error
}

var tables = []string{
	"dex_transactions",
	"token_pair_info",
	"dex_transactions_errors",
	"auto_sell",
	"listener_progress",
}

func TestMain(m *testing.M) {
	code := m.Run()
	if shared.pool != nil {
		shared.pool.Close()
	}
	if shared.container != nil {
		_ = shared.container.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupTestDB returns a migrated pool with empty tables. The cleanup func is
// kept for call-site symmetry; the container outlives single tests.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	shared.once.Do(func() {
		shared.container, shared.pool, shared.err = startPostgres(context.Background())
	})
	require.NoError(t, shared.err, "postgres test container")

	_, err := shared.pool.Exec(context.Background(),
		"TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY")
	require.NoError(t, err, "truncate tables")

	return shared.pool, func() {}
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, *Pool, error) {
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("raydium"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, nil, err
	}
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return container, nil, err
	}
	if err := applyMigrations(ctx, pool); err != nil {
		return container, pool, err
	}
	return container, pool, nil
}

// applyMigrations runs internal/storage/migrations/postgres/*.sql in name
// order. The migrations package imports this one, so it reads the files
// from disk instead of the embedded copy.
func applyMigrations(ctx context.Context, pool *Pool) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	dir := os.DirFS(filepath.Join(root, "internal", "storage", "migrations", "postgres"))

	names, err := fs.Glob(dir, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := fs.ReadFile(dir, name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}
