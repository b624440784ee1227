// Package postgres persists checkpoints in a PostgreSQL table through
// database/sql. The store is driver-agnostic: hosts register a driver (for
// example github.com/lib/pq) and hand over the opened *sql.DB.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hugolhafner/go-changefeed/checkpoint"
	"github.com/hugolhafner/go-changefeed/observer"
)

var (
	_ checkpoint.Checkpointer = (*Store)(nil)
	_ checkpoint.Loader       = (*Store)(nil)
)

const defaultTable = "changefeed_checkpoints"

type Store struct {
	db    *sql.DB
	table string
}

type Option func(*Store)

// WithTable overrides the checkpoint table name. The name is interpolated
// into SQL, so it must be a trusted identifier.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		table: defaultTable,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// EnsureSchema creates the checkpoint table if it does not exist. Real
// deployments usually manage this with migrations.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection TEXT NOT NULL,
		partition_id TEXT NOT NULL,
		token TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, partition_id)
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create checkpoint table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Checkpoint(ctx context.Context, oc observer.Context, token string) error {
	query := fmt.Sprintf(`INSERT INTO %s (collection, partition_id, token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, partition_id)
		DO UPDATE SET token = EXCLUDED.token, updated_at = NOW()`, s.table)

	if _, err := s.db.ExecContext(ctx, query, oc.Collection, oc.Partition, token); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, collection, partition string) (string, error) {
	query := fmt.Sprintf(`SELECT token FROM %s WHERE collection = $1 AND partition_id = $2`, s.table)

	var token string
	err := s.db.QueryRowContext(ctx, query, collection, partition).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load checkpoint: %w", err)
	}
	return token, nil
}
