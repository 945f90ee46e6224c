package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// HistorySchemaVersion is bumped whenever the history tables change shape.
const HistorySchemaVersion = "1"

// CreateHistorySchema creates the cycle and acknowledgement tables. It is
// idempotent and runs in one transaction.
func CreateHistorySchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"history_metadata", createHistoryMetadataTable},
		{"cycles", createCyclesTable},
		{"acknowledgements", createAcknowledgementsTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range historyIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO history_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		HistorySchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap history_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetHistorySchemaVersion returns the stored schema version, or "0" for a
// database that has never been initialised.
func GetHistorySchemaVersion(db *sql.DB) (string, error) {
	var exists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='history_metadata'").Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("failed to check history_metadata existence: %w", err)
	}
	if exists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM history_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

const createHistoryMetadataTable = `
CREATE TABLE IF NOT EXISTS history_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

const createCyclesTable = `
CREATE TABLE IF NOT EXISTS cycles (
    cycle_id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    language TEXT NOT NULL,
    new_count INTEGER NOT NULL DEFAULT 0,
    updated_count INTEGER NOT NULL DEFAULT 0,
    deleted_count INTEGER NOT NULL DEFAULT 0,
    unchanged_count INTEGER NOT NULL DEFAULT 0,
    pending_count INTEGER NOT NULL DEFAULT 0,
    is_baseline INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    recorded_at TEXT NOT NULL
)`

const createAcknowledgementsTable = `
CREATE TABLE IF NOT EXISTS acknowledgements (
    ack_id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    function_id TEXT NOT NULL,
    function_name TEXT NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    recorded_at TEXT NOT NULL
)`

var historyIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_cycles_path ON cycles(file_path, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_cycles_recorded ON cycles(recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_acks_path ON acknowledgements(file_path, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_acks_recorded ON acknowledgements(recorded_at)`,
}
