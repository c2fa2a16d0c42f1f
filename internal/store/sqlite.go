package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/trial-eligibility-engine/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite match store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS trial_matches (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		trial_id TEXT NOT NULL,
		eligible INTEGER NOT NULL DEFAULT 0,
		match_json BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trial_matches_patient ON trial_matches(patient_id);
	CREATE INDEX IF NOT EXISTS idx_trial_matches_trial ON trial_matches(trial_id);
	CREATE INDEX IF NOT EXISTS idx_trial_matches_created_at ON trial_matches(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a record, replacing any record with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, record *MatchRecord) error {
	payload, err := encodeMatch(record)
	if err != nil {
		return err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trial_matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			patient_id = excluded.patient_id,
			trial_id = excluded.trial_id,
			eligible = excluded.eligible,
			match_json = excluded.match_json
	`,
		record.ID.String(),
		record.RunID.String(),
		record.PatientID,
		record.TrialID,
		record.Eligible,
		payload,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*MatchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+matchColumns+" FROM trial_matches WHERE id = ?", id.String())

	record, err := scanMatchRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return record, nil
}

// List returns records, most recent first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*MatchRecord, error) {
	return s.query(ctx, `
		SELECT `+matchColumns+` FROM trial_matches
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
}

// ListByPatient returns the records of one patient, most recent first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRecord, error) {
	return s.query(ctx, `
		SELECT `+matchColumns+` FROM trial_matches
		WHERE patient_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, patientID, limit, offset)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]*MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*MatchRecord
	for rows.Next() {
		record, err := scanMatchRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trial_matches").Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM trial_matches WHERE id = ?", id.String())
	return err
}

// ExportJSON exports all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports records from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
