package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-engine/internal/domain"
)

func TestConverter_Convert(t *testing.T) {
	c := MustNewDefaultConverter()

	tests := []struct {
		name        string
		measurement domain.LabMeasurement
		value       float64
		from, to    domain.Unit
		want        float64
	}{
		{"creatinine mg/dL to umol/L", domain.MeasurementCreatinine, 1.0, domain.UnitMilligramsPerDeciliter, domain.UnitMicromolesPerLiter, 88.42},
		{"creatinine umol/L to mg/dL", domain.MeasurementCreatinine, 88.42, domain.UnitMicromolesPerLiter, domain.UnitMilligramsPerDeciliter, 1.0},
		{"hemoglobin g/dL to mmol/L", domain.MeasurementHemoglobin, 10, domain.UnitGramsPerDeciliter, domain.UnitMillimolesPerLiter, 6.206},
		{"neutrophils 10^9/L to cells/uL", domain.MeasurementNeutrophilsAbs, 1.5, domain.UnitBillionsPerLiter, domain.UnitCellsPerMicroliter, 1500},
		{"albumin g/dL to g/L", domain.MeasurementAlbumin, 3.5, domain.UnitGramsPerDeciliter, domain.UnitGramsPerLiter, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Convert(tt.measurement, tt.value, tt.from, tt.to)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConverter_SameUnitIsIdentity(t *testing.T) {
	c, err := NewConverter(nil)
	require.NoError(t, err)

	got, ok := c.Convert(domain.MeasurementASAT, 42, domain.UnitUnitsPerLiter, domain.UnitUnitsPerLiter)
	assert.True(t, ok)
	assert.Equal(t, 42.0, got)
}

func TestConverter_UnknownPairIsAbsent(t *testing.T) {
	c := MustNewDefaultConverter()

	_, ok := c.Convert(domain.MeasurementASAT, 42, domain.UnitUnitsPerLiter, domain.UnitMicromolesPerLiter)
	assert.False(t, ok)

	// Molar factors are analyte-specific: the creatinine factor must not leak to albumin.
	_, ok = c.Convert(domain.MeasurementAlbumin, 1, domain.UnitMilligramsPerDeciliter, domain.UnitMicromolesPerLiter)
	assert.False(t, ok)
	assert.False(t, c.CanConvert(domain.MeasurementAlbumin, domain.UnitMilligramsPerDeciliter, domain.UnitMicromolesPerLiter))
}

func TestConverter_RoundTrip(t *testing.T) {
	c := MustNewDefaultConverter()

	for _, pair := range c.Pairs() {
		m := pair.Measurement
		if m == "" {
			m = domain.MeasurementAlbumin
		}
		for _, v := range []float64{0.1, 1, 7.3, 250} {
			there, ok := c.Convert(m, v, pair.From, pair.To)
			require.True(t, ok)
			back, ok := c.Convert(m, there, pair.To, pair.From)
			require.True(t, ok)
			assert.InEpsilon(t, v, back, 1e-12, "%s %s<->%s", m, pair.From, pair.To)
		}
	}
}

func TestNewConverter_RejectsBadFactors(t *testing.T) {
	_, err := NewConverter([]ConversionFactor{{From: domain.UnitGramsPerLiter, To: domain.UnitGramsPerDeciliter, Factor: 0}})
	assert.Error(t, err)

	_, err = NewConverter([]ConversionFactor{{From: domain.UnitGramsPerLiter, To: domain.UnitGramsPerLiter, Factor: 1}})
	assert.Error(t, err)

	dup := ConversionFactor{From: domain.UnitGramsPerLiter, To: domain.UnitGramsPerDeciliter, Factor: 0.1}
	_, err = NewConverter([]ConversionFactor{dup, dup})
	assert.Error(t, err)
}
