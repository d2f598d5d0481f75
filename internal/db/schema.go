package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'crew' CHECK (role IN ('admin', 'manager', 'crew')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    starts_at  DATETIME,
    ends_at    DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS materials (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    category      TEXT,
    control       TEXT NOT NULL CHECK (control IN ('serialized', 'quantity')),
    description   TEXT,
    total_qty     INTEGER NOT NULL DEFAULT 0,
    available_qty INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME,
    CHECK (available_qty >= 0 AND available_qty <= total_qty)
);

CREATE TABLE IF NOT EXISTS serials (
    id          INTEGER PRIMARY KEY,
    material_id INTEGER NOT NULL REFERENCES materials(id),
    number      TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'available'
                CHECK (status IN ('available', 'in-use', 'maintenance', 'lost', 'consumed')),
    location    TEXT,
    tags        TEXT,
    event_id    INTEGER REFERENCES events(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (material_id, number),
    CHECK ((status = 'in-use' AND event_id IS NOT NULL)
        OR (status != 'in-use' AND event_id IS NULL))
);

CREATE TABLE IF NOT EXISTS checklist_lines (
    id           INTEGER PRIMARY KEY,
    event_id     INTEGER NOT NULL REFERENCES events(id),
    material_id  INTEGER NOT NULL REFERENCES materials(id),
    required_qty INTEGER NOT NULL CHECK (required_qty > 0),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS allocations (
    id           INTEGER PRIMARY KEY,
    event_id     INTEGER NOT NULL REFERENCES events(id),
    line_id      INTEGER NOT NULL REFERENCES checklist_lines(id),
    material_id  INTEGER NOT NULL REFERENCES materials(id),
    serial_id    INTEGER REFERENCES serials(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    mode         TEXT NOT NULL CHECK (mode IN ('advance-shipment', 'with-crew')),
    carrier      TEXT,
    responsible  TEXT,
    status       TEXT NOT NULL DEFAULT 'reserved' CHECK (status IN ('reserved', 'returned')),
    outcome      TEXT CHECK (outcome IN ('returned-ok', 'returned-damaged', 'lost', 'consumed')),
    returned_qty INTEGER,
    return_notes TEXT,
    created_by   INTEGER REFERENCES users(id),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    returned_at  DATETIME,
    CHECK ((status = 'returned') = (outcome IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_allocations_event ON allocations(event_id);
CREATE INDEX IF NOT EXISTS idx_allocations_line ON allocations(line_id);
CREATE INDEX IF NOT EXISTS idx_allocations_material ON allocations(material_id);

-- The ledger references the other tables weakly (by id, no foreign keys):
-- entries must survive the rows they describe.
CREATE TABLE IF NOT EXISTS movements (
    id          INTEGER PRIMARY KEY,
    material_id INTEGER NOT NULL,
    serial_id   INTEGER,
    event_id    INTEGER,
    op          TEXT NOT NULL CHECK (op IN ('entry', 'exit', 'adjustment', 'allocation',
                                            'deallocation', 'return-ok', 'return-damaged',
                                            'loss', 'consumption')),
    quantity    INTEGER NOT NULL,
    reason      TEXT,
    proof_refs  TEXT,
    recorded_by INTEGER REFERENCES users(id),
    recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_movements_material ON movements(material_id);
CREATE INDEX IF NOT EXISTS idx_movements_event ON movements(event_id);

CREATE TABLE IF NOT EXISTS proofs (
    id         INTEGER PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    width      INTEGER NOT NULL,
    height     INTEGER NOT NULL,
    created_by INTEGER REFERENCES users(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{}

// Migrate creates the schema and applies pending migrations. Safe to run
// on every startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
