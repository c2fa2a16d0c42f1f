// Package domain contains the core entities of the trial eligibility engine:
// the evaluation verdicts produced by eligibility rules, the patient record
// they inspect, and the trial/cohort eligibility aggregates built from them.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationResult is the verdict of a single criterion evaluation.
//
// The comparable results form the total order FAIL < WARN < UNDETERMINED < PASS.
// NOT_EVALUATED and NOT_IMPLEMENTED are terminal states outside that order:
// they mark rules that were intentionally skipped or have no computation yet.
type EvaluationResult string

const (
	PASS            EvaluationResult = "PASS"
	WARN            EvaluationResult = "WARN"
	UNDETERMINED    EvaluationResult = "UNDETERMINED"
	FAIL            EvaluationResult = "FAIL"
	NOT_EVALUATED   EvaluationResult = "NOT_EVALUATED"
	NOT_IMPLEMENTED EvaluationResult = "NOT_IMPLEMENTED"
)

var (
	ErrInvalidEvaluationResult = errors.New("invalid evaluation result")
	ErrInvalidComparator       = errors.New("invalid comparator")
	ErrInvalidUnit             = errors.New("invalid unit")
	ErrInvalidMeasurement      = errors.New("invalid lab measurement")
	ErrInvalidDirection        = errors.New("invalid threshold direction")
)

// IsValid reports whether r is one of the six known results.
func (r EvaluationResult) IsValid() bool {
	switch r {
	case PASS, WARN, UNDETERMINED, FAIL, NOT_EVALUATED, NOT_IMPLEMENTED:
		return true
	default:
		return false
	}
}

// IsComparable reports whether r takes part in the FAIL < WARN < UNDETERMINED < PASS order.
func (r EvaluationResult) IsComparable() bool {
	return r.rank() >= 0
}

// String returns the string representation of the result.
func (r EvaluationResult) String() string {
	return string(r)
}

// rank places comparable results on the lattice. Non-comparable results rank -1.
func (r EvaluationResult) rank() int {
	switch r {
	case FAIL:
		return 0
	case WARN:
		return 1
	case UNDETERMINED:
		return 2
	case PASS:
		return 3
	default:
		return -1
	}
}

// IsWorseThan reports whether r precedes other in the order. It is false
// whenever either side is non-comparable.
func (r EvaluationResult) IsWorseThan(other EvaluationResult) bool {
	if !r.IsComparable() || !other.IsComparable() {
		return false
	}
	return r.rank() < other.rank()
}

// IsBetterThan reports whether r follows other in the order.
func (r EvaluationResult) IsBetterThan(other EvaluationResult) bool {
	return other.IsWorseThan(r)
}

// LogFields returns structured logging fields for audit trails.
func (r EvaluationResult) LogFields() map[string]any {
	return map[string]any{
		"result":     string(r),
		"is_valid":   r.IsValid(),
		"comparable": r.IsComparable(),
	}
}

// ParseEvaluationResult converts a stored string back into a result.
func ParseEvaluationResult(s string) (EvaluationResult, error) {
	r := EvaluationResult(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEvaluationResult, s)
	}
	return r, nil
}

// Comparator qualifies a reported measurement: the true value is equal to,
// greater than or less than the reported one.
type Comparator string

const (
	ComparatorNone        Comparator = ""
	ComparatorGreaterThan Comparator = ">"
	ComparatorLessThan    Comparator = "<"
)

// IsValid reports whether c is a known comparator.
func (c Comparator) IsValid() bool {
	switch c {
	case ComparatorNone, ComparatorGreaterThan, ComparatorLessThan:
		return true
	default:
		return false
	}
}

// Inverse swaps ">" and "<". Used when a derived value moves opposite to its source.
func (c Comparator) Inverse() Comparator {
	switch c {
	case ComparatorGreaterThan:
		return ComparatorLessThan
	case ComparatorLessThan:
		return ComparatorGreaterThan
	default:
		return c
	}
}

// ParseComparator parses the comparator prefix of a lab report.
func ParseComparator(s string) (Comparator, error) {
	c := Comparator(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidComparator, s)
	}
	return c, nil
}

// UnmarshalText makes Comparator a closed enum when decoding JSON or YAML.
func (c *Comparator) UnmarshalText(text []byte) error {
	parsed, err := ParseComparator(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Direction selects which side of a threshold satisfies a criterion.
type Direction string

const (
	// DirectionMin requires value >= threshold.
	DirectionMin Direction = "MIN"
	// DirectionMax requires value <= threshold.
	DirectionMax Direction = "MAX"
)

// IsValid reports whether d is a known direction.
func (d Direction) IsValid() bool {
	return d == DirectionMin || d == DirectionMax
}
