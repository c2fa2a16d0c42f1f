package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/logging"
)

// PairFailure records a (patient, trial) pair aborted by a precondition violation.
type PairFailure struct {
	PatientID string
	TrialID   string
	Err       error
}

// BatchResult holds the matches of one batch run in (patient, trial) input order.
type BatchResult struct {
	RunID    uuid.UUID
	Matches  []*domain.TrialMatch
	Failures []PairFailure
}

// MatchBatch evaluates every record against every trial using up to
// concurrency goroutines. Cancelling ctx stops scheduling new pairs and
// returns ctx.Err().
func (m *TrialMatcher) MatchBatch(ctx context.Context, records []*domain.PatientRecord, trials []*CompiledTrial, concurrency int) (*BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	runID := uuid.New()
	logger := logging.WithRun(m.logger, runID).WithFields(logrus.Fields{
		"patients": len(records),
		"trials":   len(trials),
	})
	logger.Info("Starting batch match")

	slots := make([]*domain.TrialMatch, len(records)*len(trials))
	failures := make([]*PairFailure, len(slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

schedule:
	for i, record := range records {
		for j, trial := range trials {
			if gctx.Err() != nil {
				break schedule
			}
			slot := i*len(trials) + j
			record, trial := record, trial
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				match, err := m.Match(record, trial)
				if err != nil {
					var precondition *domain.PreconditionError
					if !errors.As(err, &precondition) {
						return fmt.Errorf("patient %s trial %s: %w", record.PatientID, trial.ID, err)
					}
					failures[slot] = &PairFailure{PatientID: record.PatientID, TrialID: trial.ID, Err: err}
					return nil
				}
				slots[slot] = match
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Warn("Batch match aborted")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{RunID: runID}
	for i := range slots {
		if slots[i] != nil {
			result.Matches = append(result.Matches, slots[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}

	logger.WithFields(logrus.Fields{
		"matches":  len(result.Matches),
		"failures": len(result.Failures),
	}).Info("Completed batch match")
	return result, nil
}
