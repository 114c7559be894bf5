// Package postgres stores snapshots in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matzehuels/routegraph/pkg/store"
)

// PGStore implements [store.Store] using PostgreSQL via pgx.
type PGStore struct {
	db    *pgxpool.Pool
	owned bool
}

// New creates a PGStore backed by the given pool. Close leaves the pool open.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Open connects to the database at url and creates the schema.
func Open(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	s := &PGStore{db: pool, owned: true}
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data      []byte
		expiresAt *time.Time
	)
	err := store.RetryWithBackoff(ctx, func() error {
		return store.Classify(s.db.QueryRow(ctx,
			`SELECT data, expires_at FROM routing_snapshots WHERE key = $1`, key,
		).Scan(&data, &expiresAt))
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return data, true, nil
}

func (s *PGStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	return store.RetryWithBackoff(ctx, func() error {
		_, err := s.db.Exec(ctx,
			`INSERT INTO routing_snapshots (key, data, saved_at, expires_at)
			 VALUES ($1, $2, NOW(), $3)
			 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, saved_at = EXCLUDED.saved_at, expires_at = EXCLUDED.expires_at`,
			key, data, expiresAt)
		return store.Classify(err)
	})
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	return store.RetryWithBackoff(ctx, func() error {
		_, err := s.db.Exec(ctx, `DELETE FROM routing_snapshots WHERE key = $1`, key)
		return store.Classify(err)
	})
}

func (s *PGStore) Close() error {
	if s.owned {
		s.db.Close()
	}
	return nil
}

var _ store.Store = (*PGStore)(nil)
