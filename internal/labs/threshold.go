// Package labs holds the clinical measurement arithmetic shared by lab rules:
// comparator-aware threshold comparison, unit conversion, reference-limit
// relative thresholds and creatinine-derived kidney function estimates.
//
// Everything here is pure. Lookup tables are immutable values built once and
// passed to the rules that need them.
package labs

import (
	"github.com/trial-eligibility-engine/internal/domain"
)

// EvaluateVersusThreshold compares a qualified measurement against threshold.
//
// A value reported as ">x" checked against a minimum it does not reach, or as
// "<x" checked against a maximum it exceeds, hides the side of the threshold
// the true value lies on and yields UNDETERMINED. Otherwise the result is PASS
// when value >= threshold (DirectionMin) or value <= threshold (DirectionMax),
// and FAIL if not.
func EvaluateVersusThreshold(value float64, comparator domain.Comparator, threshold float64, direction domain.Direction) domain.EvaluationResult {
	switch direction {
	case domain.DirectionMin:
		if comparator == domain.ComparatorGreaterThan && value < threshold {
			return domain.UNDETERMINED
		}
		if value >= threshold {
			return domain.PASS
		}
		return domain.FAIL
	case domain.DirectionMax:
		if comparator == domain.ComparatorLessThan && value > threshold {
			return domain.UNDETERMINED
		}
		if value <= threshold {
			return domain.PASS
		}
		return domain.FAIL
	default:
		domain.Preconditionf("labs", "unknown threshold direction %q", direction)
		return domain.UNDETERMINED
	}
}

// EvaluateVersusMinValue requires value >= minValue.
func EvaluateVersusMinValue(value float64, comparator domain.Comparator, minValue float64) domain.EvaluationResult {
	return EvaluateVersusThreshold(value, comparator, minValue, domain.DirectionMin)
}

// EvaluateVersusMaxValue requires value <= maxValue.
func EvaluateVersusMaxValue(value float64, comparator domain.Comparator, maxValue float64) domain.EvaluationResult {
	return EvaluateVersusThreshold(value, comparator, maxValue, domain.DirectionMax)
}
