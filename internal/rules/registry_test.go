package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(testEnvironment(t))
	require.NoError(t, err)
	return r
}

func TestNewRegistry_RejectsIncompleteEnvironment(t *testing.T) {
	env := testEnvironment(t)
	env.Doid = nil

	_, err := NewRegistry(env)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "doid", validationErr.Field)
}

func TestRegistry_RuleNames(t *testing.T) {
	names := newTestRegistry(t).RuleNames()

	assert.Contains(t, names, "HAS_LAB_VALUE_OF_AT_LEAST_X")
	assert.Contains(t, names, "HAS_PRIMARY_TUMOR_BELONGING_TO_DOID_X")
	assert.Contains(t, names, "NOT_IMPLEMENTED")
	assert.IsIncreasing(t, names)
}

func TestRegistry_Register(t *testing.T) {
	r := newTestRegistry(t)
	factory := func(Environment, RuleParameters) (domain.EvaluationFunction, error) {
		return evaluation.Constant(evaluation.Pass("always", "always")), nil
	}

	require.NoError(t, r.Register("ALWAYS_PASS", "Test rule", factory))
	assert.ErrorIs(t, r.Register("ALWAYS_PASS", "Test rule", factory), domain.ErrDuplicateRule)

	desc, ok := r.Describe("ALWAYS_PASS")
	assert.True(t, ok)
	assert.Equal(t, "Test rule", desc)

	f, err := r.Build(CriterionDefinition{Rule: "ALWAYS_PASS"})
	require.NoError(t, err)
	assert.Equal(t, domain.PASS, f.Evaluate(&domain.PatientRecord{}).Result)
}

func TestRegistry_BuildErrors(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		def  CriterionDefinition
		want error
	}{
		{"unknown rule", CriterionDefinition{Rule: "HAS_SUPERPOWERS"}, domain.ErrUnknownRule},
		{"missing value", CriterionDefinition{Rule: "HAS_LAB_VALUE_OF_AT_LEAST_X", Params: RuleParameters{Measurement: domain.MeasurementHemoglobin}}, domain.ErrMissingParameter},
		{"missing measurement", CriterionDefinition{Rule: "HAS_LAB_VALUE_OF_AT_MOST_X_ULN", Params: RuleParameters{Factor: f64(2)}}, domain.ErrMissingParameter},
		{"incompatible unit", CriterionDefinition{Rule: "HAS_LAB_VALUE_OF_AT_MOST_X", Params: RuleParameters{Measurement: domain.MeasurementASAT, Value: f64(1), Unit: domain.UnitPercentage}}, domain.ErrIncompatibleUnit},
		{"empty node", CriterionDefinition{}, domain.ErrInvalidDefinition},
		{"rule and composite", CriterionDefinition{Rule: "NOT_EVALUATED", Or: []CriterionDefinition{{Rule: "NOT_EVALUATED"}}}, domain.ErrInvalidDefinition},
		{"empty and", CriterionDefinition{And: []CriterionDefinition{}}, domain.ErrEmptyComposite},
		{"nested error", CriterionDefinition{Not: &CriterionDefinition{Rule: "HAS_SUPERPOWERS"}}, domain.ErrUnknownRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.def)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

const exclusionYAML = `
and:
  - not:
      rule: HAS_HISTORY_OF_CONDITION_WITH_DOID_X
      params:
        doid: "9351"
  - fallback:
      primary:
        rule: HAS_LAB_VALUE_OF_AT_MOST_X
        params:
          measurement: crea
          value: 1.5
          unit: mg/dL
      secondary:
        rule: HAS_CREATININE_CLEARANCE_CG_OF_AT_LEAST_X
        params:
          value: 60
  - or:
      - rule: HAS_PRIMARY_TUMOR_BELONGING_TO_DOID_X
        params:
          doid: "1324"
      - rule: NOT_EVALUATED
`

func TestRegistry_BuildFromYAML(t *testing.T) {
	var def CriterionDefinition
	require.NoError(t, yaml.Unmarshal([]byte(exclusionYAML), &def))
	require.Len(t, def.And, 3)
	assert.Equal(t, domain.MeasurementCreatinine, def.And[1].Fallback.Primary.Params.Measurement)
	assert.Equal(t, domain.UnitMilligramsPerDeciliter, def.And[1].Fallback.Primary.Params.Unit)

	f, err := newTestRegistry(t).Build(def)
	require.NoError(t, err)

	lungCancer := &domain.PatientRecord{
		BirthYear: 1964,
		Gender:    domain.GenderFemale,
		Tumor:     domain.TumorDetails{PrimaryTumorDoids: []string{"3908"}},
		LabValues: []domain.LabValue{lab(domain.MeasurementCreatinine, 1, 1.1, domain.UnitMilligramsPerDeciliter)},
	}
	assert.Equal(t, domain.NOT_EVALUATED, f.Evaluate(lungCancer).Result)
}

func TestRegistry_BuildComposite(t *testing.T) {
	def := CriterionDefinition{And: []CriterionDefinition{
		{Not: &CriterionDefinition{Rule: "HAS_HISTORY_OF_CONDITION_WITH_DOID_X", Params: RuleParameters{Doid: "9351"}}},
		{Rule: "HAS_PRIMARY_TUMOR_BELONGING_TO_DOID_X", Params: RuleParameters{Doid: "1324"}},
	}}
	f, err := newTestRegistry(t).Build(def)
	require.NoError(t, err)

	eligible := &domain.PatientRecord{Tumor: domain.TumorDetails{PrimaryTumorDoids: []string{"3908"}}}
	assert.Equal(t, domain.PASS, f.Evaluate(eligible).Result)

	diabetic := &domain.PatientRecord{
		Tumor:                domain.TumorDetails{PrimaryTumorDoids: []string{"3908"}},
		PriorOtherConditions: []domain.PriorOtherCondition{{Name: "T2D", Doids: []string{"9352"}}},
	}
	e := f.Evaluate(diabetic)
	assert.Equal(t, domain.FAIL, e.Result)
	assert.True(t, e.IsExcluding())
}
