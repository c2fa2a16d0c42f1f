package labs

import (
	"fmt"
	"sort"

	"github.com/trial-eligibility-engine/internal/domain"
)

// ConversionFactor converts From into To by multiplication. An empty
// Measurement makes the factor apply to every measurement.
type ConversionFactor struct {
	Measurement domain.LabMeasurement
	From        domain.Unit
	To          domain.Unit
	Factor      float64
}

type conversionKey struct {
	measurement domain.LabMeasurement
	from        domain.Unit
	to          domain.Unit
}

// Converter converts values between clinically equivalent units.
// It is immutable after NewConverter and safe for concurrent use.
type Converter struct {
	factors map[conversionKey]float64
	pairs   []ConversionFactor
}

// DefaultConversionFactors lists the unit pairs the engine knows about.
// Molar conversions depend on the analyte's molar mass and are therefore
// bound to a measurement.
func DefaultConversionFactors() []ConversionFactor {
	return []ConversionFactor{
		{Measurement: domain.MeasurementCreatinine, From: domain.UnitMilligramsPerDeciliter, To: domain.UnitMicromolesPerLiter, Factor: 88.42},
		{Measurement: domain.MeasurementTotalBilirubin, From: domain.UnitMilligramsPerDeciliter, To: domain.UnitMicromolesPerLiter, Factor: 17.1},
		{Measurement: domain.MeasurementDirectBilirubin, From: domain.UnitMilligramsPerDeciliter, To: domain.UnitMicromolesPerLiter, Factor: 17.1},
		{Measurement: domain.MeasurementHemoglobin, From: domain.UnitGramsPerDeciliter, To: domain.UnitMillimolesPerLiter, Factor: 0.6206},
		{From: domain.UnitGramsPerDeciliter, To: domain.UnitGramsPerLiter, Factor: 10},
		{From: domain.UnitBillionsPerLiter, To: domain.UnitCellsPerMicroliter, Factor: 1000},
	}
}

// NewConverter builds a converter from factors, registering the reciprocal
// of every pair.
func NewConverter(factors []ConversionFactor) (*Converter, error) {
	c := &Converter{factors: make(map[conversionKey]float64, 2*len(factors))}
	for _, f := range factors {
		if f.Factor <= 0 {
			return nil, fmt.Errorf("conversion %s -> %s: factor must be positive, got %v", f.From, f.To, f.Factor)
		}
		if f.From == f.To {
			return nil, fmt.Errorf("conversion %s -> %s: units must differ", f.From, f.To)
		}
		if !f.From.IsValid() || !f.To.IsValid() {
			return nil, fmt.Errorf("conversion %s -> %s: %w", f.From, f.To, domain.ErrInvalidUnit)
		}
		forward := conversionKey{f.Measurement, f.From, f.To}
		if _, dup := c.factors[forward]; dup {
			return nil, fmt.Errorf("conversion %s -> %s for %q registered twice", f.From, f.To, f.Measurement)
		}
		c.factors[forward] = f.Factor
		c.factors[conversionKey{f.Measurement, f.To, f.From}] = 1 / f.Factor
		c.pairs = append(c.pairs, f)
	}
	return c, nil
}

// MustNewDefaultConverter returns a converter over DefaultConversionFactors.
func MustNewDefaultConverter() *Converter {
	c, err := NewConverter(DefaultConversionFactors())
	if err != nil {
		panic(err)
	}
	return c
}

// Convert converts value of measurement m from one unit to another. ok is
// false when no factor is registered; callers must treat that as UNDETERMINED.
func (c *Converter) Convert(m domain.LabMeasurement, value float64, from, to domain.Unit) (converted float64, ok bool) {
	if from == to {
		return value, true
	}
	factor, ok := c.factor(m, from, to)
	if !ok {
		return 0, false
	}
	return value * factor, true
}

// CanConvert reports whether Convert would succeed.
func (c *Converter) CanConvert(m domain.LabMeasurement, from, to domain.Unit) bool {
	if from == to {
		return true
	}
	_, ok := c.factor(m, from, to)
	return ok
}

func (c *Converter) factor(m domain.LabMeasurement, from, to domain.Unit) (float64, bool) {
	if f, ok := c.factors[conversionKey{m, from, to}]; ok {
		return f, true
	}
	f, ok := c.factors[conversionKey{"", from, to}]
	return f, ok
}

// Pairs returns the registered forward pairs, sorted for stable output.
func (c *Converter) Pairs() []ConversionFactor {
	out := make([]ConversionFactor, len(c.pairs))
	copy(out, c.pairs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Measurement != out[j].Measurement {
			return out[i].Measurement < out[j].Measurement
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
