// Package catalog records stored matches in Postgres so a corpus can be
// queried without scanning the match directory.
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/kraken/internal/kraken"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "kraken_matches"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres writes match records into a single table.
type Postgres struct {
	pool  execCloser
	table string
}

// New connects to Postgres and ensures the catalog table exists.
func New(ctx context.Context, cfg Config) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, kraken.Configf("catalog.dsn", "is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := open(ctx, pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// open wraps pool and creates the catalog table. It is the only place the
// schema is prepared.
func open(ctx context.Context, pool execCloser, table string) (*Postgres, error) {
	store, err := NewWithPool(pool, table)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a catalog from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, kraken.Configf("catalog.table", "invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// EnsureSchema creates the catalog table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	match_id      TEXT PRIMARY KEY,
	queue_id      INTEGER NOT NULL,
	game_creation TIMESTAMPTZ,
	digest        TEXT NOT NULL,
	path          TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	stored_at     TIMESTAMPTZ NOT NULL
)`, p.table)
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create catalog table: %w", err)
	}
	return nil
}

// RecordMatch inserts rec, ignoring ids that are already catalogued.
func (p *Postgres) RecordMatch(ctx context.Context, rec kraken.MatchRecord) error {
	if rec.MatchID == "" {
		return fmt.Errorf("match id is required")
	}
	var created any
	if !rec.GameCreation.IsZero() {
		created = rec.GameCreation
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	match_id,
	queue_id,
	game_creation,
	digest,
	path,
	run_id,
	stored_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (match_id) DO NOTHING`, p.table)

	args := []any{
		rec.MatchID,
		rec.QueueID,
		created,
		rec.Digest,
		rec.Path,
		rec.RunID,
		rec.StoredAt,
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert match %s: %w", rec.MatchID, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}
