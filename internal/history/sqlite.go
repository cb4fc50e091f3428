package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; also keeps ":memory:" on one connection

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec scenario.HistoryRecord) (scenario.HistoryRecord, error) {
	rec = withID(rec)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_history (
			id, scenario, seed, trials, posture, below_threshold,
			success_rate, expected_value, risk_adjusted_value, mean_effect_risk,
			mean_cost, mean_duration_hours, risk_score, partial, warnings, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Scenario, rec.Seed, rec.Trials, string(rec.Posture), boolToInt(rec.BelowThreshold),
		rec.SuccessRate, rec.ExpectedValue, rec.RiskAdjustedValue, rec.MeanEffectRisk,
		rec.MeanCost, rec.MeanDurationHours, rec.RiskScore, boolToInt(rec.Partial), rec.Warnings,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return scenario.HistoryRecord{}, fmt.Errorf("failed to insert history record: %w", err)
	}
	return rec, nil
}

// List returns the newest records first, optionally filtered by scenario name.
func (s *SQLiteStore) List(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error) {
	query := `
		SELECT id, scenario, seed, trials, posture, below_threshold,
			success_rate, expected_value, risk_adjusted_value, mean_effect_risk,
			mean_cost, mean_duration_hours, risk_score, partial, warnings, created_at
		FROM simulation_history`
	args := []any{}
	if scenarioName != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenarioName)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []scenario.HistoryRecord
	for rows.Next() {
		var (
			rec            scenario.HistoryRecord
			posture        string
			belowThreshold int
			partial        int
			createdAt      string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Scenario, &rec.Seed, &rec.Trials, &posture, &belowThreshold,
			&rec.SuccessRate, &rec.ExpectedValue, &rec.RiskAdjustedValue, &rec.MeanEffectRisk,
			&rec.MeanCost, &rec.MeanDurationHours, &rec.RiskScore, &partial, &rec.Warnings, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		rec.Posture = scenario.Posture(posture)
		rec.BelowThreshold = belowThreshold != 0
		rec.Partial = partial != 0
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("history record %s: invalid created_at: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
