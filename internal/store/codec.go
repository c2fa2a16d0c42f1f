package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/trial-eligibility-engine/internal/domain"
)

const exportVersion = "1.0"

// maxExportLimit is the maximum number of records to export at once.
const maxExportLimit = 1000000

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanMatchRecord scans the columns selected by matchColumns.
func scanMatchRecord(s scanner) (*MatchRecord, error) {
	r := &MatchRecord{}
	var payload []byte
	if err := s.Scan(&r.ID, &r.RunID, &r.PatientID, &r.TrialID, &r.Eligible, &payload, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Match = &domain.TrialMatch{}
	if err := json.Unmarshal(payload, r.Match); err != nil {
		return nil, fmt.Errorf("failed to decode match %s: %w", r.ID, err)
	}
	return r, nil
}

const matchColumns = "id, run_id, patient_id, trial_id, eligible, match_json, created_at"

func encodeMatch(r *MatchRecord) ([]byte, error) {
	if r.Match == nil {
		return nil, domain.NewValidationError("match", "record has no match", r.ID)
	}
	payload, err := json.Marshal(r.Match)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match: %w", err)
	}
	return payload, nil
}

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}

	export := &MatchExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Matches:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export MatchExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, record := range export.Matches {
		_, err := s.Get(ctx, record.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := s.Save(ctx, record); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
