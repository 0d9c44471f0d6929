package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chstore "raydium-engine/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database if needed, applies every
// embedded ClickHouse file and returns a connection to that database.
// Files are split before connecting, so a malformed migration fails without
// touching the server.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	plan := make([][]string, len(files))
	for i, m := range files {
		if plan[i], err = statements(m.sql); err != nil {
			return nil, fmt.Errorf("split migration %s: %w", m.name, err)
		}
	}

	db, err := chstore.DatabaseName(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, db); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	for i, m := range files {
		for _, stmt := range plan[i] {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, db string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", db)); err != nil {
		return fmt.Errorf("create database %s: %w", db, err)
	}
	return nil
}

// statements splits a file into single statements for the native protocol,
// which takes one per Exec. Semicolons inside '...' literals ('' escapes a
// quote) do not split, and lines starting with -- are dropped.
func statements(sql string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			out = append(out, stmt)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(sql, "\n") {
		if !inQuote && strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case ch == '\'' && inQuote && i+1 < len(line) && line[i+1] == '\'':
				cur.WriteString("''")
				i++
			case ch == '\'':
				inQuote = !inQuote
				cur.WriteByte(ch)
			case ch == ';' && !inQuote:
				flush()
			default:
				cur.WriteByte(ch)
			}
		}
		cur.WriteByte('\n')
	}
	if inQuote {
		return nil, errors.New("unterminated string literal")
	}
	flush()
	return out, nil
}
