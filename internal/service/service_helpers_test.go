package service

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/labs"
	"github.com/trial-eligibility-engine/internal/rules"
	"github.com/trial-eligibility-engine/pkg/doid"
)

var referenceDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// MockEvaluationFunction is a mock implementation of domain.EvaluationFunction
type MockEvaluationFunction struct {
	mock.Mock
}

func (m *MockEvaluationFunction) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	args := m.Called(record)
	return args.Get(0).(domain.Evaluation)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func newTestRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	model, err := doid.NewModel(
		map[string][]string{"3908": {"1324"}, "1324": {"162"}, "9352": {"9351"}},
		map[string]string{"162": "cancer", "1324": "lung cancer", "9351": "diabetes mellitus"},
		0,
	)
	require.NoError(t, err)

	registry, err := rules.NewRegistry(rules.Environment{
		Doid:                model,
		Converter:           labs.MustNewDefaultConverter(),
		Overrides:           labs.DefaultReferenceLimitOverrides(),
		ReferenceDate:       referenceDate,
		LabMaxAge:           90 * 24 * time.Hour,
		DefaultBodyWeightKg: 70,
	})
	require.NoError(t, err)

	require.NoError(t, registry.Register("PRECONDITION_VIOLATION", "Always violates a precondition",
		func(rules.Environment, rules.RuleParameters) (domain.EvaluationFunction, error) {
			return panicking{}, nil
		}))
	return registry
}

type panicking struct{}

func (panicking) Evaluate(*domain.PatientRecord) domain.Evaluation {
	domain.Preconditionf("test", "evaluated on wrong measurement")
	return domain.Evaluation{}
}

func lungCancerPatient(id string) *domain.PatientRecord {
	return &domain.PatientRecord{
		PatientID: id,
		BirthYear: 1960,
		Gender:    domain.GenderFemale,
		Tumor:     domain.TumorDetails{PrimaryTumorDoids: []string{"3908"}},
		LabValues: []domain.LabValue{
			{Code: domain.MeasurementHemoglobin, Date: referenceDate.AddDate(0, 0, -3), Value: 7.5, Unit: domain.UnitMillimolesPerLiter},
			{Code: domain.MeasurementCreatinine, Date: referenceDate.AddDate(0, 0, -3), Value: 70, Unit: domain.UnitMicromolesPerLiter},
		},
	}
}

const trialsYAML = `
trials:
  - id: LUNG-01
    title: Lung cancer phase II
    criteria:
      - id: I-01
        text: Histologically confirmed lung cancer
        rule: HAS_PRIMARY_TUMOR_BELONGING_TO_DOID_X
        params:
          doid: "1324"
      - id: I-02
        text: Adequate hemoglobin
        rule: HAS_LAB_VALUE_OF_AT_LEAST_X
        params:
          measurement: HB
          value: 6
          unit: mmol/L
      - id: E-01
        text: No history of diabetes
        not:
          rule: HAS_HISTORY_OF_CONDITION_WITH_DOID_X
          params:
            doid: "9351"
    cohorts:
      - id: A
        criteria:
          - id: A-01
            text: Hemoglobin of at least 8 mmol/L
            rule: HAS_LAB_VALUE_OF_AT_LEAST_X
            params:
              measurement: HB
              value: 8
      - id: B
        closed: true
        criteria:
          - id: B-01
            text: Adequate kidney function
            rule: HAS_EGFR_OF_AT_LEAST_X
            params:
              value: 60
  - id: PRECONDITION
    title: Misconfigured trial
    criteria:
      - id: X-01
        rule: PRECONDITION_VIOLATION
`
