package history

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

const schemaV1 = `
CREATE TABLE IF NOT EXISTS simulation_history (
    id TEXT PRIMARY KEY,
    scenario TEXT NOT NULL,
    seed INTEGER NOT NULL,
    trials INTEGER NOT NULL,
    posture TEXT NOT NULL DEFAULT '',
    below_threshold INTEGER NOT NULL DEFAULT 0,
    success_rate REAL NOT NULL,
    expected_value REAL NOT NULL,
    mean_cost REAL NOT NULL,
    mean_duration_hours REAL NOT NULL,
    risk_score REAL NOT NULL,
    partial INTEGER NOT NULL DEFAULT 0,
    warnings INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_simulation_history_scenario
    ON simulation_history(scenario, created_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

const migrationV2 = `
ALTER TABLE simulation_history ADD COLUMN risk_adjusted_value REAL NOT NULL DEFAULT 0;
ALTER TABLE simulation_history ADD COLUMN mean_effect_risk REAL NOT NULL DEFAULT 0;
`

// InitSchema creates the tables on a fresh database, migrates older ones and
// rejects databases written by a newer version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	current := version.Int64 // zero on a fresh database
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	if current < 2 {
		if _, err := db.ExecContext(ctx, migrationV2); err != nil {
			return fmt.Errorf("failed to migrate schema to version 2: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
