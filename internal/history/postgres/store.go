// Package postgres persists summary history rows in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

const defaultTable = "summaries"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for history rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store reads and writes summary rows.
type Store struct {
	pool  pool
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("history.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the history table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	domain      TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	instruction TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL,
	model_id    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Save inserts a summary row.
func (s *Store) Save(ctx context.Context, record summarizer.Record) error {
	if s == nil || s.pool == nil {
		return errors.New("history store is not configured")
	}
	if record.ID == "" {
		return errors.New("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	url,
	domain,
	title,
	instruction,
	summary,
	model_id,
	created_at,
	duration_ms
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`, s.table)

	args := []any{
		record.ID,
		record.URL,
		record.Domain,
		record.Title,
		record.Instruction,
		record.Summary,
		record.ModelID,
		record.CreatedAt,
		record.DurationMS,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]summarizer.Record, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("history store is not configured")
	}
	if limit <= 0 {
		return []summarizer.Record{}, nil
	}
	query := fmt.Sprintf(`
SELECT id, url, domain, title, instruction, summary, model_id, created_at, duration_ms
FROM %s
ORDER BY created_at DESC
LIMIT $1`, s.table)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	records := make([]summarizer.Record, 0, limit)
	for rows.Next() {
		var r summarizer.Record
		if err := rows.Scan(
			&r.ID,
			&r.URL,
			&r.Domain,
			&r.Title,
			&r.Instruction,
			&r.Summary,
			&r.ModelID,
			&r.CreatedAt,
			&r.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return records, nil
}
