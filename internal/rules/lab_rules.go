package rules

import (
	"fmt"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
	"github.com/trial-eligibility-engine/internal/labs"
)

// labVerdict turns a numeric result into an evaluation. Lab failures are
// recoverable: an out-of-range value can change before enrolment.
func labVerdict(result domain.EvaluationResult, specific, general string) domain.Evaluation {
	if result == domain.FAIL {
		return evaluation.RecoverableFail(specific, general)
	}
	return evaluation.Of(result, false, specific, general)
}

// labValueThreshold compares a lab value against an absolute threshold
// expressed in unit.
type labValueThreshold struct {
	measurement domain.LabMeasurement
	threshold   float64
	unit        domain.Unit
	direction   domain.Direction
	converter   *labs.Converter
}

func newLabValueThreshold(env Environment, m domain.LabMeasurement, threshold float64, unit domain.Unit,
	direction domain.Direction) (*labValueThreshold, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMeasurement, m)
	}
	if unit == domain.UnitNone {
		unit = m.DefaultUnit()
	}
	if !env.Converter.CanConvert(m, m.DefaultUnit(), unit) {
		return nil, fmt.Errorf("%s in %s: %w", m, unit, domain.ErrIncompatibleUnit)
	}
	return &labValueThreshold{
		measurement: m,
		threshold:   threshold,
		unit:        unit,
		direction:   direction,
		converter:   env.Converter,
	}, nil
}

// HasSufficientLabValue requires the most recent value of m to be at least
// minValue, expressed in unit (the default unit of m when empty).
func HasSufficientLabValue(env Environment, m domain.LabMeasurement, minValue float64, unit domain.Unit) (domain.EvaluationFunction, error) {
	rule, err := newLabValueThreshold(env, m, minValue, unit, domain.DirectionMin)
	if err != nil {
		return nil, err
	}
	return env.withFreshness(m, rule)
}

// HasLimitedLabValue requires the most recent value of m to be at most maxValue.
func HasLimitedLabValue(env Environment, m domain.LabMeasurement, maxValue float64, unit domain.Unit) (domain.EvaluationFunction, error) {
	rule, err := newLabValueThreshold(env, m, maxValue, unit, domain.DirectionMax)
	if err != nil {
		return nil, err
	}
	return env.withFreshness(m, rule)
}

func (r *labValueThreshold) EvaluateLab(_ *domain.PatientRecord, lab domain.LabValue) domain.Evaluation {
	name := r.measurement.Display()
	value, ok := r.converter.Convert(r.measurement, lab.Value, lab.Unit, r.unit)
	if !ok {
		return evaluation.Undetermined(
			fmt.Sprintf("%s could not be converted from %s to %s", name, lab.Unit, r.unit),
			fmt.Sprintf("%s undetermined", name),
		)
	}

	result := labs.EvaluateVersusThreshold(value, lab.Comparator, r.threshold, r.direction)
	reported := fmt.Sprintf("%s %s%.1f %s", name, lab.Comparator, value, r.unit)
	bound := "minimum"
	if r.direction == domain.DirectionMax {
		bound = "maximum"
	}

	switch result {
	case domain.PASS:
		return labVerdict(result,
			fmt.Sprintf("%s is within %s of %.1f %s", reported, bound, r.threshold, r.unit),
			fmt.Sprintf("Adequate %s", name))
	case domain.UNDETERMINED:
		return labVerdict(result,
			fmt.Sprintf("%s cannot be compared with %s of %.1f %s", reported, bound, r.threshold, r.unit),
			fmt.Sprintf("%s undetermined", name))
	default:
		return labVerdict(result,
			fmt.Sprintf("%s is outside %s of %.1f %s", reported, bound, r.threshold, r.unit),
			fmt.Sprintf("Inadequate %s", name))
	}
}

// labValueRelative compares a lab value against a multiple of its reference limit.
type labValueRelative struct {
	measurement domain.LabMeasurement
	factor      float64
	direction   domain.Direction
	overrides   labs.ReferenceLimitOverrides
}

// HasLimitedLabValueULN requires the most recent value of m to be at most
// factor times its upper limit of normal.
func HasLimitedLabValueULN(env Environment, m domain.LabMeasurement, factor float64) (domain.EvaluationFunction, error) {
	return newLabValueRelative(env, m, factor, domain.DirectionMax)
}

// HasSufficientLabValueLLN requires the most recent value of m to be at least
// factor times its lower limit of normal.
func HasSufficientLabValueLLN(env Environment, m domain.LabMeasurement, factor float64) (domain.EvaluationFunction, error) {
	return newLabValueRelative(env, m, factor, domain.DirectionMin)
}

func newLabValueRelative(env Environment, m domain.LabMeasurement, factor float64, direction domain.Direction) (domain.EvaluationFunction, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMeasurement, m)
	}
	if factor <= 0 {
		return nil, domain.NewValidationError("factor", "must be positive", factor)
	}
	return env.withFreshness(m, &labValueRelative{
		measurement: m,
		factor:      factor,
		direction:   direction,
		overrides:   env.Overrides,
	})
}

func (r *labValueRelative) EvaluateLab(_ *domain.PatientRecord, lab domain.LabValue) domain.Evaluation {
	name := r.measurement.Display()
	limit := "ULN"
	result := r.overrides.EvaluateVersusMaxULN(lab, r.factor)
	if r.direction == domain.DirectionMin {
		limit = "LLN"
		result = r.overrides.EvaluateVersusMinLLN(lab, r.factor)
	}

	switch result {
	case domain.PASS:
		return labVerdict(result,
			fmt.Sprintf("%s %s%.1f %s is within %.1fx %s", name, lab.Comparator, lab.Value, lab.Unit, r.factor, limit),
			fmt.Sprintf("Adequate %s", name))
	case domain.UNDETERMINED:
		return labVerdict(result,
			fmt.Sprintf("%s %s%.1f %s cannot be compared with %.1fx %s", name, lab.Comparator, lab.Value, lab.Unit, r.factor, limit),
			fmt.Sprintf("%s undetermined", name))
	default:
		return labVerdict(result,
			fmt.Sprintf("%s %s%.1f %s is outside %.1fx %s", name, lab.Comparator, lab.Value, lab.Unit, r.factor, limit),
			fmt.Sprintf("Inadequate %s", name))
	}
}
