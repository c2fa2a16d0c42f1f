package rules

import (
	"fmt"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/labs"
)

// RuleParameters are the typed inputs of a leaf rule. Each rule reads the
// subset it needs.
type RuleParameters struct {
	Measurement domain.LabMeasurement `yaml:"measurement,omitempty" json:"measurement,omitempty"`
	Value       *float64              `yaml:"value,omitempty" json:"value,omitempty"`
	Unit        domain.Unit           `yaml:"unit,omitempty" json:"unit,omitempty"`
	Factor      *float64              `yaml:"factor,omitempty" json:"factor,omitempty"`
	Method      labs.CreatinineMethod `yaml:"method,omitempty" json:"method,omitempty"`
	Doid        string                `yaml:"doid,omitempty" json:"doid,omitempty"`
}

func (p RuleParameters) requireMeasurement() (domain.LabMeasurement, error) {
	if p.Measurement == "" {
		return "", fmt.Errorf("measurement: %w", domain.ErrMissingParameter)
	}
	return p.Measurement, nil
}

func (p RuleParameters) requireValue() (float64, error) {
	if p.Value == nil {
		return 0, fmt.Errorf("value: %w", domain.ErrMissingParameter)
	}
	return *p.Value, nil
}

func (p RuleParameters) requireFactor() (float64, error) {
	if p.Factor == nil {
		return 0, fmt.Errorf("factor: %w", domain.ErrMissingParameter)
	}
	return *p.Factor, nil
}

// CriterionDefinition is one node of a criterion tree: either a leaf rule
// with parameters or exactly one composite.
type CriterionDefinition struct {
	Rule     string                `yaml:"rule,omitempty" json:"rule,omitempty"`
	Params   RuleParameters        `yaml:"params,omitempty" json:"params,omitempty"`
	And      []CriterionDefinition `yaml:"and,omitempty" json:"and,omitempty"`
	Or       []CriterionDefinition `yaml:"or,omitempty" json:"or,omitempty"`
	Not      *CriterionDefinition  `yaml:"not,omitempty" json:"not,omitempty"`
	Fallback *FallbackDefinition   `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// FallbackDefinition evaluates Secondary only when Primary is undetermined.
type FallbackDefinition struct {
	Primary   CriterionDefinition `yaml:"primary" json:"primary"`
	Secondary CriterionDefinition `yaml:"secondary" json:"secondary"`
}

// kind names the single populated variant of d, or fails when zero or
// several are set.
func (d CriterionDefinition) kind() (string, error) {
	var kinds []string
	if d.Rule != "" {
		kinds = append(kinds, "rule")
	}
	if d.And != nil {
		kinds = append(kinds, "and")
	}
	if d.Or != nil {
		kinds = append(kinds, "or")
	}
	if d.Not != nil {
		kinds = append(kinds, "not")
	}
	if d.Fallback != nil {
		kinds = append(kinds, "fallback")
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("%w: expected exactly one of rule/and/or/not/fallback, got %v", domain.ErrInvalidDefinition, kinds)
	}
	return kinds[0], nil
}
