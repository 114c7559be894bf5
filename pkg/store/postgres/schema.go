package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS routing_snapshots (
    key        TEXT PRIMARY KEY,
    data       BYTEA NOT NULL,
    saved_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_routing_snapshots_expires ON routing_snapshots(expires_at);
`

// CreateSchema creates the routing_snapshots table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the routing_snapshots table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS routing_snapshots;`)
	return err
}
