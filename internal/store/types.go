// Package store persists trial match results. It stores one record per
// (patient, trial) evaluation with the full match serialized as JSON.
package store

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/trial-eligibility-engine/internal/domain"
)

// MatchRecord is a persisted trial match.
type MatchRecord struct {
	ID        uuid.UUID          `json:"id"`
	RunID     uuid.UUID          `json:"run_id"`
	PatientID string             `json:"patient_id"`
	TrialID   string             `json:"trial_id"`
	Eligible  bool               `json:"eligible"`
	Match     *domain.TrialMatch `json:"match"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewMatchRecord wraps match in a record with a fresh ID.
func NewMatchRecord(runID uuid.UUID, match *domain.TrialMatch) *MatchRecord {
	return &MatchRecord{
		ID:        uuid.New(),
		RunID:     runID,
		PatientID: match.PatientID,
		TrialID:   match.TrialID,
		Eligible:  match.IsPotentiallyEligible,
		Match:     match,
	}
}

// Store defines the interface for match result storage operations.
type Store interface {
	// Save stores a record, replacing any record with the same ID.
	Save(ctx context.Context, record *MatchRecord) error

	// Get retrieves a record by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*MatchRecord, error)

	// List returns records, most recent first.
	List(ctx context.Context, limit, offset int) ([]*MatchRecord, error)

	// ListByPatient returns the records of one patient, most recent first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExportJSON exports all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports records from a JSON reader. Records whose ID
	// already exists are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// MatchExport represents the JSON export format.
type MatchExport struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
	Matches    []*MatchRecord `json:"matches"`
}
