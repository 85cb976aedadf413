package db

import (
	"context"
	"fmt"
)

// schema is the full DDL for the service. Statements are idempotent so
// Migrate can run unconditionally at startup.
const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	mint             TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	symbol           TEXT NOT NULL DEFAULT '',
	creator          TEXT NOT NULL DEFAULT '',
	pool_vault       TEXT,
	liquidity_usd    DOUBLE PRECISION NOT NULL DEFAULT 0,
	liquidity_locked BOOLEAN NOT NULL DEFAULT false,
	poll_interval    INTERVAL NOT NULL DEFAULT '60 seconds',
	last_poll_time   TIMESTAMPTZ,
	status           TEXT NOT NULL DEFAULT 'active',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assessments (
	id         BIGSERIAL PRIMARY KEY,
	mint       TEXT NOT NULL REFERENCES tokens(mint) ON DELETE CASCADE,
	score      DOUBLE PRECISION NOT NULL,
	risk_level TEXT NOT NULL,
	suspicious BOOLEAN NOT NULL DEFAULT false,
	patterns   TEXT[] NOT NULL DEFAULT '{}',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	factors    JSONB NOT NULL DEFAULT '{}',
	breakdown  JSONB NOT NULL DEFAULT '[]',
	commentary TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assessments_mint_created
	ON assessments (mint, created_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
	id         BIGSERIAL PRIMARY KEY,
	mint       TEXT NOT NULL REFERENCES tokens(mint) ON DELETE CASCADE,
	score      DOUBLE PRECISION NOT NULL,
	risk_level TEXT NOT NULL,
	patterns   TEXT[] NOT NULL DEFAULT '{}',
	message    TEXT NOT NULL DEFAULT '',
	tweeted    BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts (created_at DESC);
`

// Migrate creates or updates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
