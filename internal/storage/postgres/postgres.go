package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool settings applied unless the DSN sets them (pool_max_conns etc.).
// The listener writes one batch per block, so a small pool is enough.
const (
	defaultMaxConns          = 8
	defaultMinConns          = 1
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultHealthCheckPeriod = 30 * time.Second
)

// Pool is the shared pgx pool handed to every store in this package.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to Postgres and pings it before returning.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	applyPoolDefaults(cfg, dsn)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

func applyPoolDefaults(cfg *pgxpool.Config, dsn string) {
	if !dsnSets(dsn, "pool_max_conns") {
		cfg.MaxConns = defaultMaxConns
	}
	if !dsnSets(dsn, "pool_min_conns") {
		cfg.MinConns = defaultMinConns
	}
	if !dsnSets(dsn, "pool_max_conn_idle_time") {
		cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	}
	if !dsnSets(dsn, "pool_health_check_period") {
		cfg.HealthCheckPeriod = defaultHealthCheckPeriod
	}
}

// dsnSets reports whether the DSN carries key, in either URL or
// keyword/value form.
func dsnSets(dsn, key string) bool {
	return strings.Contains(dsn, key+"=")
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	p.Pool.Close()
}

const (
	pgErrUniqueViolation = "23505"
	pgErrCheckViolation  = "23514"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isDuplicateKeyError(err error) bool {
	return err != nil && pgErrorCode(err) == pgErrUniqueViolation
}

// isCheckViolation reports a row rejected by a CHECK constraint, e.g. an
// unknown transaction_type.
func isCheckViolation(err error) bool {
	return err != nil && pgErrorCode(err) == pgErrCheckViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
