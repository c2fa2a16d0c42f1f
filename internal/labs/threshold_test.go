package labs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trial-eligibility-engine/internal/domain"
)

func TestEvaluateVersusThreshold(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		comparator domain.Comparator
		threshold  float64
		direction  domain.Direction
		want       domain.EvaluationResult
	}{
		{"min reached", 5, domain.ComparatorNone, 4, domain.DirectionMin, domain.PASS},
		{"min exactly", 4, domain.ComparatorNone, 4, domain.DirectionMin, domain.PASS},
		{"min missed", 3, domain.ComparatorNone, 4, domain.DirectionMin, domain.FAIL},
		{"min hidden by greater-than", 3, domain.ComparatorGreaterThan, 4, domain.DirectionMin, domain.UNDETERMINED},
		{"min reached with greater-than", 5, domain.ComparatorGreaterThan, 4, domain.DirectionMin, domain.PASS},
		{"min missed with less-than", 3, domain.ComparatorLessThan, 4, domain.DirectionMin, domain.FAIL},
		{"max respected", 3, domain.ComparatorNone, 4, domain.DirectionMax, domain.PASS},
		{"max exactly", 4, domain.ComparatorNone, 4, domain.DirectionMax, domain.PASS},
		{"max exceeded", 5, domain.ComparatorNone, 4, domain.DirectionMax, domain.FAIL},
		{"max hidden by less-than", 5, domain.ComparatorLessThan, 4, domain.DirectionMax, domain.UNDETERMINED},
		{"max respected with less-than", 3, domain.ComparatorLessThan, 4, domain.DirectionMax, domain.PASS},
		{"max exceeded with greater-than", 5, domain.ComparatorGreaterThan, 4, domain.DirectionMax, domain.FAIL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateVersusThreshold(tt.value, tt.comparator, tt.threshold, tt.direction)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateVersusThreshold_UndeterminedOnlyWhenComparatorHidesSide(t *testing.T) {
	values := []float64{0, 1.5, 2, 2.5, 10}
	comparators := []domain.Comparator{domain.ComparatorNone, domain.ComparatorGreaterThan, domain.ComparatorLessThan}
	directions := []domain.Direction{domain.DirectionMin, domain.DirectionMax}
	threshold := 2.0

	for _, v := range values {
		for _, c := range comparators {
			for _, d := range directions {
				t.Run(fmt.Sprintf("%v%s_%s", v, c, d), func(t *testing.T) {
					hidden := (c == domain.ComparatorGreaterThan && d == domain.DirectionMin && v < threshold) ||
						(c == domain.ComparatorLessThan && d == domain.DirectionMax && v > threshold)

					got := EvaluateVersusThreshold(v, c, threshold, d)

					if hidden {
						assert.Equal(t, domain.UNDETERMINED, got)
						return
					}
					satisfied := v >= threshold
					if d == domain.DirectionMax {
						satisfied = v <= threshold
					}
					if satisfied {
						assert.Equal(t, domain.PASS, got)
					} else {
						assert.Equal(t, domain.FAIL, got)
					}
				})
			}
		}
	}
}

func TestEvaluateVersusThreshold_UnknownDirectionPanics(t *testing.T) {
	assert.Panics(t, func() {
		EvaluateVersusThreshold(1, domain.ComparatorNone, 1, domain.Direction("SIDEWAYS"))
	})
}

func TestCreatinineScenarios(t *testing.T) {
	converter := MustNewDefaultConverter()

	t.Run("1.2 mg/dL against max 1.5 mg/dL passes", func(t *testing.T) {
		assert.Equal(t, domain.PASS, EvaluateVersusMaxValue(1.2, domain.ComparatorNone, 1.5))
	})

	t.Run("above-range report exceeding a max fails", func(t *testing.T) {
		assert.Equal(t, domain.FAIL, EvaluateVersusMaxValue(2.0, domain.ComparatorGreaterThan, 1.5))
	})

	t.Run("above-range report in umol/L against mg/dL max fails", func(t *testing.T) {
		maxUmol, ok := converter.Convert(domain.MeasurementCreatinine, 1.5, domain.UnitMilligramsPerDeciliter, domain.UnitMicromolesPerLiter)
		assert.True(t, ok)
		assert.InDelta(t, 132.63, maxUmol, 0.01)

		reported := 176.84
		assert.Equal(t, domain.FAIL, EvaluateVersusMaxValue(reported, domain.ComparatorGreaterThan, maxUmol))
	})
}
