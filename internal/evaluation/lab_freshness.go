package evaluation

import (
	"fmt"
	"time"

	"github.com/trial-eligibility-engine/internal/domain"
)

// LabEvaluationFunction evaluates a criterion against one lab value taken
// from the record.
type LabEvaluationFunction interface {
	EvaluateLab(record *domain.PatientRecord, lab domain.LabValue) domain.Evaluation
}

// LabFunc adapts an ordinary function to LabEvaluationFunction.
type LabFunc func(record *domain.PatientRecord, lab domain.LabValue) domain.Evaluation

// EvaluateLab calls f(record, lab).
func (f LabFunc) EvaluateLab(record *domain.PatientRecord, lab domain.LabValue) domain.Evaluation {
	return f(record, lab)
}

// UnitChecker tells whether a value reported in one unit can be expressed in another.
type UnitChecker interface {
	CanConvert(m domain.LabMeasurement, from, to domain.Unit) bool
}

// LabFreshness gates a lab evaluation on the most recent measurement of one
// code being present, recent enough and in a usable unit.
type LabFreshness struct {
	measurement  domain.LabMeasurement
	function     LabEvaluationFunction
	minValidDate time.Time
	units        UnitChecker
}

// NewLabFreshness wraps function for measurement. Values dated before
// minValidDate are considered outdated.
func NewLabFreshness(measurement domain.LabMeasurement, function LabEvaluationFunction,
	minValidDate time.Time, units UnitChecker) (*LabFreshness, error) {
	if !measurement.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMeasurement, measurement)
	}
	if function == nil || units == nil {
		return nil, fmt.Errorf("lab freshness for %s: %w", measurement, domain.ErrNilFunction)
	}
	return &LabFreshness{
		measurement:  measurement,
		function:     function,
		minValidDate: minValidDate,
		units:        units,
	}, nil
}

// Evaluate runs the wrapped evaluation on the most recent valid measurement.
// A FAIL is downgraded to UNDETERMINED when the next valid measurement
// would have passed.
func (l *LabFreshness) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	name := l.measurement.Display()
	values := record.LabsFor(l.measurement)
	if len(values) == 0 {
		return Undetermined(
			fmt.Sprintf("No measurement found for %s", name),
			fmt.Sprintf("%s undetermined", name),
		)
	}

	latest := values[0]
	if !l.isValid(latest) {
		return Undetermined(
			fmt.Sprintf("Most recent %s measurement of %s is outdated or reported in unusable unit %q",
				name, latest.Date.Format(time.DateOnly), latest.Unit),
			fmt.Sprintf("%s undetermined", name),
		)
	}

	e := l.function.EvaluateLab(record, latest)
	if e.Result != domain.FAIL {
		return e
	}

	previous, ok := l.previousValid(values[1:])
	if !ok || l.function.EvaluateLab(record, previous).Result != domain.PASS {
		return e
	}

	return domain.Evaluation{
		Result: domain.UNDETERMINED,
		Undetermined: e.Fail.Union(domain.Messages{
			Specific: domain.NewMessageSet(fmt.Sprintf(
				"Most recent %s fails criterion but the measurement of %s passed",
				name, previous.Date.Format(time.DateOnly))),
			General: domain.NewMessageSet(fmt.Sprintf("%s inconsistent over time", name)),
		}),
	}
}

func (l *LabFreshness) isValid(lab domain.LabValue) bool {
	if lab.Date.Before(l.minValidDate) {
		return false
	}
	return l.units.CanConvert(l.measurement, lab.Unit, l.measurement.DefaultUnit())
}

func (l *LabFreshness) previousValid(older []domain.LabValue) (domain.LabValue, bool) {
	for _, lab := range older {
		if l.isValid(lab) {
			return lab, true
		}
	}
	return domain.LabValue{}, false
}
