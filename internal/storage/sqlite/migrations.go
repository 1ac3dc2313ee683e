package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are INTEGER minor units.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    owner_id TEXT NOT NULL DEFAULT '',
    payer_id INTEGER NOT NULL DEFAULT 0,
    declared_total INTEGER,
    next_item_id INTEGER NOT NULL,
    next_participant_id INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    bill_id TEXT NOT NULL,
    participant_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    display_name TEXT NOT NULL,
    computed_total INTEGER NOT NULL,
    PRIMARY KEY (bill_id, participant_id),
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS items (
    bill_id TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price INTEGER NOT NULL,
    PRIMARY KEY (bill_id, item_id),
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS item_assignments (
    bill_id TEXT NOT NULL,
    item_id INTEGER NOT NULL,
    participant_id INTEGER NOT NULL,
    PRIMARY KEY (bill_id, item_id, participant_id),
    FOREIGN KEY (bill_id, item_id) REFERENCES items(bill_id, item_id) ON DELETE CASCADE,
    FOREIGN KEY (bill_id, participant_id) REFERENCES participants(bill_id, participant_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_bills_owner_id ON bills(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_bill_id ON items(bill_id);
CREATE INDEX IF NOT EXISTS idx_participants_bill_id ON participants(bill_id);
CREATE INDEX IF NOT EXISTS idx_item_assignments_bill_id ON item_assignments(bill_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
