// Package service orchestrates criterion evaluation: it compiles trial
// definitions into evaluation function trees, matches patient records
// against them and aggregates the per-criterion evaluations into trial and
// cohort eligibility.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/rules"
)

// CompiledCriterion is a criterion reference with its evaluation function.
type CompiledCriterion struct {
	Reference domain.CriterionReference
	Function  domain.EvaluationFunction
}

// CompiledCohort is a cohort ready for evaluation.
type CompiledCohort struct {
	ID       string
	Open     bool
	Criteria []CompiledCriterion
}

// CompiledTrial is a trial ready for evaluation. It is immutable and shared
// across all patients.
type CompiledTrial struct {
	ID       string
	Title    string
	Criteria []CompiledCriterion
	Cohorts  []CompiledCohort
}

// TrialMatcher evaluates patient records against compiled trials.
type TrialMatcher struct {
	logger   *logrus.Logger
	registry *rules.Registry
	metrics  *Metrics
	now      func() time.Time
}

// NewTrialMatcher creates a matcher. metrics may be nil.
func NewTrialMatcher(registry *rules.Registry, metrics *Metrics, logger *logrus.Logger) *TrialMatcher {
	return &TrialMatcher{
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Compile builds the evaluation functions of every criterion in def.
func (m *TrialMatcher) Compile(def TrialDefinition) (*CompiledTrial, error) {
	if err := def.Validate(); err != nil {
		return nil, domain.NewValidationError("trial", err.Error(), def.ID)
	}

	criteria, err := m.compileEntries(def.Criteria)
	if err != nil {
		return nil, fmt.Errorf("trial %s: %w", def.ID, err)
	}

	trial := &CompiledTrial{ID: def.ID, Title: def.Title, Criteria: criteria}
	for _, c := range def.Cohorts {
		cohortCriteria, err := m.compileEntries(c.Criteria)
		if err != nil {
			return nil, fmt.Errorf("trial %s cohort %s: %w", def.ID, c.ID, err)
		}
		trial.Cohorts = append(trial.Cohorts, CompiledCohort{ID: c.ID, Open: !c.Closed, Criteria: cohortCriteria})
	}

	m.logger.WithFields(logrus.Fields{
		"trial_id": def.ID,
		"criteria": len(trial.Criteria),
		"cohorts":  len(trial.Cohorts),
	}).Debug("Compiled trial")

	return trial, nil
}

// CompileAll compiles every definition, failing on the first invalid one.
func (m *TrialMatcher) CompileAll(defs []TrialDefinition) ([]*CompiledTrial, error) {
	trials := make([]*CompiledTrial, 0, len(defs))
	for _, def := range defs {
		trial, err := m.Compile(def)
		if err != nil {
			return nil, err
		}
		trials = append(trials, trial)
	}
	m.logger.WithField("trial_count", len(trials)).Info("Compiled trial definitions")
	return trials, nil
}

func (m *TrialMatcher) compileEntries(entries []CriterionEntry) ([]CompiledCriterion, error) {
	compiled := make([]CompiledCriterion, 0, len(entries))
	for _, e := range entries {
		f, err := m.registry.Build(e.Definition)
		if err != nil {
			return nil, fmt.Errorf("criterion %s: %w", e.ID, err)
		}
		compiled = append(compiled, CompiledCriterion{
			Reference: domain.CriterionReference{ID: e.ID, Text: e.Text},
			Function:  f,
		})
	}
	return compiled, nil
}

// Match evaluates record against trial. A rule precondition violation aborts
// this match only and is returned as a *domain.PreconditionError.
func (m *TrialMatcher) Match(record *domain.PatientRecord, trial *CompiledTrial) (match *domain.TrialMatch, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			precondition, ok := r.(*domain.PreconditionError)
			if !ok {
				panic(r)
			}
			m.metrics.observePrecondition()
			m.logger.WithFields(logrus.Fields{
				"patient_id": record.PatientID,
				"trial_id":   trial.ID,
				"component":  precondition.Component,
			}).WithError(precondition).Error("Rule precondition violated")
			match, err = nil, precondition
		}
	}()

	match = &domain.TrialMatch{
		PatientID:   record.PatientID,
		TrialID:     trial.ID,
		Evaluations: evaluateCriteria(record, trial.Criteria),
		EvaluatedAt: m.now().UTC(),
	}
	match.IsPotentiallyEligible = domain.IsPotentiallyEligible(match.Evaluations)

	for _, c := range trial.Cohorts {
		evaluations := evaluateCriteria(record, c.Criteria)
		match.Cohorts = append(match.Cohorts, domain.CohortMatch{
			CohortID:              c.ID,
			Open:                  c.Open,
			IsPotentiallyEligible: match.IsPotentiallyEligible && domain.IsPotentiallyEligible(evaluations),
			Evaluations:           evaluations,
		})
	}

	m.metrics.observeMatch(match, time.Since(start))
	m.logMatch(match)
	return match, nil
}

// MatchAll evaluates record against every trial. Trials aborted by a
// precondition violation are skipped and reported in the joined error.
func (m *TrialMatcher) MatchAll(record *domain.PatientRecord, trials []*CompiledTrial) ([]*domain.TrialMatch, error) {
	matches := make([]*domain.TrialMatch, 0, len(trials))
	var errs []error
	for _, trial := range trials {
		match, err := m.Match(record, trial)
		if err != nil {
			errs = append(errs, fmt.Errorf("trial %s: %w", trial.ID, err))
			continue
		}
		matches = append(matches, match)
	}
	return matches, errors.Join(errs...)
}

func evaluateCriteria(record *domain.PatientRecord, criteria []CompiledCriterion) []domain.CriterionEvaluation {
	evaluations := make([]domain.CriterionEvaluation, 0, len(criteria))
	for _, c := range criteria {
		evaluations = append(evaluations, domain.CriterionEvaluation{
			Reference:  c.Reference,
			Evaluation: c.Function.Evaluate(record),
		})
	}
	return evaluations
}

func (m *TrialMatcher) logMatch(match *domain.TrialMatch) {
	if m.logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, ce := range match.Evaluations {
			m.logger.WithFields(logrus.Fields{
				"patient_id":  match.PatientID,
				"trial_id":    match.TrialID,
				"criterion":   ce.Reference.ID,
				"result":      ce.Evaluation.Result,
				"recoverable": ce.Evaluation.Recoverable,
			}).Debug("Evaluated criterion")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"patient_id":       match.PatientID,
		"trial_id":         match.TrialID,
		"eligible":         match.IsPotentiallyEligible,
		"eligible_cohorts": match.EligibleCohorts(),
	}).Info("Completed trial match")
}
