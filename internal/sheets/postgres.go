package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/partbot/internal/core"
)

// Each sheet line is one row. Line 1 is the header.
const createSheetRows = `
CREATE TABLE IF NOT EXISTS sheet_rows (
    sheet      TEXT        NOT NULL,
    line       INTEGER     NOT NULL,
    cells      JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (sheet, line)
)`

// Postgres keeps sheets in a sheet_rows table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, pings and ensures the table exists.
func NewPostgres(ctx context.Context, databaseURL string, maxConns int32) (*Postgres, error) {
	if databaseURL == "" {
		return nil, &core.ConfigurationError{Setting: "DATABASE_URL", Message: "required for the postgres backend"}
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, &core.ConfigurationError{Setting: "DATABASE_URL", Message: err.Error()}
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createSheetRows); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create sheet_rows: %w", err)
	}

	if u, err := url.Parse(databaseURL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) HeaderAndRows(ctx context.Context, sheet string) ([]string, [][]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY line`, sheet)
	if err != nil {
		return nil, nil, core.NewAccessError("read", sheet, err)
	}

	all, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		var cells []any
		if err := row.Scan(&cells); err != nil {
			return nil, err
		}
		return toStrings(cells), nil
	})
	if err != nil {
		return nil, nil, core.NewAccessError("read", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// AppendRow inserts after the current last line. A transaction-scoped
// advisory lock on the sheet name keeps concurrent appends from racing for
// the same line number.
func (p *Postgres) AppendRow(ctx context.Context, sheet string, values []any) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sheet); err != nil {
			return fmt.Errorf("lock sheet: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO sheet_rows (sheet, line, cells)
			SELECT $1, COALESCE(MAX(line), 0) + 1, $2
			FROM sheet_rows WHERE sheet = $1`, sheet, values)
		if err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
		return nil
	})
	return core.NewAccessError("append", sheet, err)
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
