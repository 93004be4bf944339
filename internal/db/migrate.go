package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS test_items (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	test_type TEXT NOT NULL DEFAULT 'generic',
	type_data JSONB NOT NULL DEFAULT '{}',
	tags TEXT[] NOT NULL DEFAULT '{}',
	priority TEXT NOT NULL DEFAULT 'medium',
	status TEXT NOT NULL DEFAULT 'draft',
	created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_test_items_test_type ON test_items(test_type);
CREATE INDEX IF NOT EXISTS idx_test_items_status ON test_items(status);
CREATE INDEX IF NOT EXISTS idx_test_items_created_by ON test_items(created_by);
CREATE INDEX IF NOT EXISTS idx_test_items_tags ON test_items USING GIN(tags);
`

// Migrate creates the tables and indexes if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Msg("database schema up to date")
	return nil
}
