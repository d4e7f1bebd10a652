package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inference-sim/loss-sim/sim"
)

// SQLiteStore persists series in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// It enables WAL mode for concurrency and durability.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate creates the statistics table if it doesn't exist.
func (s *SQLiteStore) migrate() error {
	// Filter columns are stored alongside the full JSON payload. Version
	// ordering is semantic, so it is compared in Go rather than SQL.
	query := `
	CREATE TABLE IF NOT EXISTS statistics (
		uuid TEXT PRIMARY KEY,
		model_key TEXT NOT NULL,
		version TEXT NOT NULL,
		min_events_per_state INTEGER NOT NULL,
		converged INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

		model JSON NOT NULL,
		payload JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_statistics_model ON statistics(model_key, min_events_per_state);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create statistics table: %w", err)
	}
	return nil
}

// Insert stores one series for model. Re-inserting a UUID is an error.
func (s *SQLiteStore) Insert(ctx context.Context, model sim.ModelDescription, stats sim.FinalizedStatistics) error {
	modelJSON, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	minEvents, err := sqliteInt(stats.Metadata.MinEventsPerState)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO statistics (uuid, model_key, version, min_events_per_state, converged, model, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stats.Metadata.UUID, Key(model), stats.Metadata.Version, minEvents, stats.Metadata.Converged,
		string(modelJSON), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert statistics %s: %w", stats.Metadata.UUID, err)
	}
	return nil
}

// Find returns the compatible series stored for model, oldest first.
func (s *SQLiteStore) Find(ctx context.Context, model sim.ModelDescription, minVersion string, minThreshold uint64) ([]sim.FinalizedStatistics, error) {
	threshold, err := sqliteInt(minThreshold)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM statistics
		WHERE model_key = ? AND min_events_per_state >= ?
		ORDER BY rowid`, Key(model), threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	var found []sim.FinalizedStatistics
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		var fs sim.FinalizedStatistics
		if err := json.Unmarshal([]byte(payload), &fs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statistics: %w", err)
		}
		found = append(found, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statistics: %w", err)
	}
	return Filter(found, minVersion, minThreshold), nil
}
