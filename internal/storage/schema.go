// Package storage persists extracted API sets and rendered symbol graphs in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is the version written by CreateSchema.
const SchemaVersion = "1"

// Open opens or creates a database at path with foreign keys enabled and the
// schema in place.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys (required for FK constraints)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return db, nil
}

// CreateSchema creates all tables and indexes. All schema creation succeeds
// or fails together.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"metadata", createMetadataTable},
		{"records", createRecordsTable},
		{"fragments", createFragmentsTable},
		{"relationships", createRelationshipsTable},
		{"symbol_graphs", createSymbolGraphsTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createMetadataTable = `
CREATE TABLE metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL                     -- ISO 8601
)
`

const createRecordsTable = `
CREATE TABLE records (
    usr TEXT PRIMARY KEY,
    parent_usr TEXT,                             -- NULL for top-level records
    position INTEGER NOT NULL,                   -- Order among siblings
    name TEXT NOT NULL,
    kind TEXT NOT NULL,                          -- Symbol graph kind identifier
    file_path TEXT NOT NULL DEFAULT '',
    line INTEGER NOT NULL DEFAULT 0,
    col INTEGER NOT NULL DEFAULT 0,
    system_header INTEGER NOT NULL DEFAULT 0,    -- Boolean
    linkage TEXT NOT NULL DEFAULT '',
    comment TEXT NOT NULL DEFAULT '',            -- Formatted lines joined by newlines
    availability TEXT NOT NULL DEFAULT '[]',     -- JSON array
    FOREIGN KEY (parent_usr) REFERENCES records(usr) ON DELETE CASCADE
)
`

const createFragmentsTable = `
CREATE TABLE fragments (
    usr TEXT NOT NULL,
    role TEXT NOT NULL,                          -- declaration or subHeading
    position INTEGER NOT NULL,
    spelling TEXT NOT NULL,
    kind TEXT NOT NULL,
    precise_identifier TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (usr, role, position),
    FOREIGN KEY (usr) REFERENCES records(usr) ON DELETE CASCADE
)
`

const createRelationshipsTable = `
CREATE TABLE relationships (
    source_usr TEXT NOT NULL,
    kind TEXT NOT NULL,                          -- memberOf, inheritsFrom, conformsTo, extensionTo, aliasOf
    target_usr TEXT NOT NULL DEFAULT '',         -- Empty when the target has no identifier
    target_name TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (source_usr) REFERENCES records(usr) ON DELETE CASCADE
)
`

const createSymbolGraphsTable = `
CREATE TABLE symbol_graphs (
    key TEXT PRIMARY KEY,                        -- USR, or a caller-chosen name for whole graphs
    document TEXT NOT NULL,                      -- Serialized symbol graph JSON
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX idx_records_parent ON records(parent_usr)",
	"CREATE INDEX idx_records_name ON records(name)",
	"CREATE INDEX idx_records_kind ON records(kind)",
	"CREATE INDEX idx_relationships_source ON relationships(source_usr)",
	"CREATE INDEX idx_relationships_target ON relationships(target_usr)",
}
