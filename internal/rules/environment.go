// Package rules holds the leaf eligibility rules and the registry that turns
// criterion definitions into evaluation function trees.
package rules

import (
	"fmt"
	"time"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
	"github.com/trial-eligibility-engine/internal/labs"
)

// Environment carries the read-only collaborators shared by every rule built
// by a registry.
type Environment struct {
	Doid                domain.DoidModel
	Converter           *labs.Converter
	Overrides           labs.ReferenceLimitOverrides
	ReferenceDate       time.Time
	LabMaxAge           time.Duration
	DefaultBodyWeightKg float64
}

// MinValidLabDate is the earliest lab date still considered recent.
func (e Environment) MinValidLabDate() time.Time {
	return e.ReferenceDate.Add(-e.LabMaxAge)
}

// Validate checks that the environment can back the built-in rules.
func (e Environment) Validate() error {
	if e.Doid == nil {
		return domain.NewValidationError("doid", "disease ontology is required", nil)
	}
	if e.Converter == nil {
		return domain.NewValidationError("converter", "unit converter is required", nil)
	}
	if e.ReferenceDate.IsZero() {
		return domain.NewValidationError("reference_date", "reference date is required", e.ReferenceDate)
	}
	if e.LabMaxAge <= 0 {
		return domain.NewValidationError("lab_max_age", "must be positive", e.LabMaxAge)
	}
	if e.DefaultBodyWeightKg <= 0 {
		return domain.NewValidationError("default_body_weight_kg", "must be positive", e.DefaultBodyWeightKg)
	}
	return nil
}

func (e Environment) withFreshness(m domain.LabMeasurement, fn evaluation.LabEvaluationFunction) (domain.EvaluationFunction, error) {
	f, err := evaluation.NewLabFreshness(m, fn, e.MinValidLabDate(), e.Converter)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap %s rule: %w", m, err)
	}
	return f, nil
}
