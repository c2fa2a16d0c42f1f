package labs

import (
	"github.com/trial-eligibility-engine/internal/domain"
)

// ReferenceLimitOverrides replaces lab-reported reference limits for
// measurements whose feeds carry unreliable or missing limits. Limits are in
// the measurement's default unit and only apply to values reported in it.
type ReferenceLimitOverrides struct {
	up  map[domain.LabMeasurement]float64
	low map[domain.LabMeasurement]float64
}

// NewReferenceLimitOverrides copies up and low into an immutable table.
func NewReferenceLimitOverrides(up, low map[domain.LabMeasurement]float64) ReferenceLimitOverrides {
	o := ReferenceLimitOverrides{
		up:  make(map[domain.LabMeasurement]float64, len(up)),
		low: make(map[domain.LabMeasurement]float64, len(low)),
	}
	for m, v := range up {
		o.up[m] = v
	}
	for m, v := range low {
		o.low[m] = v
	}
	return o
}

// DefaultReferenceLimitOverrides is the built-in override table.
func DefaultReferenceLimitOverrides() ReferenceLimitOverrides {
	return NewReferenceLimitOverrides(
		map[domain.LabMeasurement]float64{
			domain.MeasurementDirectBilirubin: 5.0,
		},
		map[domain.LabMeasurement]float64{
			domain.MeasurementAlbumin: 35.0,
		},
	)
}

// RefLimitUp returns the upper limit of normal applicable to lab.
func (o ReferenceLimitOverrides) RefLimitUp(lab domain.LabValue) (float64, bool) {
	if v, ok := o.up[lab.Code]; ok && lab.Unit == lab.Code.DefaultUnit() {
		return v, true
	}
	if lab.RefLimitUp == nil {
		return 0, false
	}
	return *lab.RefLimitUp, true
}

// RefLimitLow returns the lower limit of normal applicable to lab.
func (o ReferenceLimitOverrides) RefLimitLow(lab domain.LabValue) (float64, bool) {
	if v, ok := o.low[lab.Code]; ok && lab.Unit == lab.Code.DefaultUnit() {
		return v, true
	}
	if lab.RefLimitLow == nil {
		return 0, false
	}
	return *lab.RefLimitLow, true
}

// EvaluateVersusMaxULN requires lab <= factor * ULN. A missing ULN is UNDETERMINED.
func (o ReferenceLimitOverrides) EvaluateVersusMaxULN(lab domain.LabValue, factor float64) domain.EvaluationResult {
	uln, ok := o.RefLimitUp(lab)
	if !ok {
		return domain.UNDETERMINED
	}
	return EvaluateVersusMaxValue(lab.Value, lab.Comparator, factor*uln)
}

// EvaluateVersusMinLLN requires lab >= factor * LLN. A missing LLN is UNDETERMINED.
func (o ReferenceLimitOverrides) EvaluateVersusMinLLN(lab domain.LabValue, factor float64) domain.EvaluationResult {
	lln, ok := o.RefLimitLow(lab)
	if !ok {
		return domain.UNDETERMINED
	}
	return EvaluateVersusMinValue(lab.Value, lab.Comparator, factor*lln)
}
