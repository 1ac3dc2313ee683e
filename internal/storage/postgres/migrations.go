package postgres

import (
	"context"
	"database/sql"
)

// Amounts are BIGINT minor units.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    owner_id TEXT NOT NULL DEFAULT '',
    payer_id INTEGER NOT NULL DEFAULT 0,
    declared_total BIGINT,
    next_item_id INTEGER NOT NULL,
    next_participant_id INTEGER NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    participant_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    display_name TEXT NOT NULL,
    computed_total BIGINT NOT NULL,
    PRIMARY KEY (bill_id, participant_id)
);

CREATE TABLE IF NOT EXISTS items (
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    item_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price BIGINT NOT NULL,
    assigned_to INTEGER[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (bill_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_bills_owner_id ON bills(owner_id);
`

func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
