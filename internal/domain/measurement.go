package domain

import (
	"fmt"
	"strings"
)

// Unit is a clinical measurement unit.
type Unit string

const (
	UnitNone                       Unit = ""
	UnitMilligramsPerDeciliter     Unit = "mg/dL"
	UnitMicromolesPerLiter         Unit = "umol/L"
	UnitGramsPerDeciliter          Unit = "g/dL"
	UnitGramsPerLiter              Unit = "g/L"
	UnitMillimolesPerLiter         Unit = "mmol/L"
	UnitBillionsPerLiter           Unit = "10^9/L"
	UnitCellsPerMicroliter         Unit = "cells/uL"
	UnitUnitsPerLiter              Unit = "U/L"
	UnitMillilitersPerMinute       Unit = "mL/min"
	UnitMillilitersPerMinutePerBSA Unit = "mL/min/1.73m2"
	UnitPercentage                 Unit = "%"
)

// IsValid reports whether u is a known unit.
func (u Unit) IsValid() bool {
	switch u {
	case UnitNone, UnitMilligramsPerDeciliter, UnitMicromolesPerLiter, UnitGramsPerDeciliter,
		UnitGramsPerLiter, UnitMillimolesPerLiter, UnitBillionsPerLiter, UnitCellsPerMicroliter,
		UnitUnitsPerLiter, UnitMillilitersPerMinute, UnitMillilitersPerMinutePerBSA, UnitPercentage:
		return true
	default:
		return false
	}
}

// String returns the canonical spelling of the unit.
func (u Unit) String() string {
	return string(u)
}

// unitAliases maps lower-cased spellings found in lab feeds to canonical units.
var unitAliases = map[string]Unit{
	"":              UnitNone,
	"mg/dl":         UnitMilligramsPerDeciliter,
	"umol/l":        UnitMicromolesPerLiter,
	"µmol/l":        UnitMicromolesPerLiter,
	"μmol/l":        UnitMicromolesPerLiter,
	"g/dl":          UnitGramsPerDeciliter,
	"g/l":           UnitGramsPerLiter,
	"mmol/l":        UnitMillimolesPerLiter,
	"10^9/l":        UnitBillionsPerLiter,
	"10*9/l":        UnitBillionsPerLiter,
	"x10^9/l":       UnitBillionsPerLiter,
	"billion/l":     UnitBillionsPerLiter,
	"cells/ul":      UnitCellsPerMicroliter,
	"cells/µl":      UnitCellsPerMicroliter,
	"cells/μl":      UnitCellsPerMicroliter,
	"/ul":           UnitCellsPerMicroliter,
	"u/l":           UnitUnitsPerLiter,
	"ml/min":        UnitMillilitersPerMinute,
	"ml/min/1.73m2": UnitMillilitersPerMinutePerBSA,
	"ml/min/1,73m2": UnitMillilitersPerMinutePerBSA,
	"%":             UnitPercentage,
}

// ParseUnit maps a reported unit string onto the closed Unit enum.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// UnmarshalText makes Unit a closed enum when decoding JSON or YAML.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// LabMeasurement identifies a lab test by its code.
type LabMeasurement string

const (
	MeasurementCreatinine            LabMeasurement = "CREA"
	MeasurementEGFRCKDEPI            LabMeasurement = "EGFR_CKD_EPI"
	MeasurementEGFRMDRD              LabMeasurement = "EGFR_MDRD"
	MeasurementCreatinineClearanceCG LabMeasurement = "CREA_CLEARANCE_CG"
	MeasurementHemoglobin            LabMeasurement = "HB"
	MeasurementAlbumin               LabMeasurement = "ALB"
	MeasurementTotalBilirubin        LabMeasurement = "TBIL"
	MeasurementDirectBilirubin       LabMeasurement = "DBIL"
	MeasurementASAT                  LabMeasurement = "ASAT"
	MeasurementALAT                  LabMeasurement = "ALAT"
	MeasurementAlkalinePhosphatase   LabMeasurement = "ALP"
	MeasurementNeutrophilsAbs        LabMeasurement = "NEUTRO_ABS"
	MeasurementThrombocytesAbs       LabMeasurement = "THROMBO_ABS"
	MeasurementLeukocytesAbs         LabMeasurement = "LEUKO_ABS"
)

// IsValid reports whether m is a known measurement.
func (m LabMeasurement) IsValid() bool {
	return m.DefaultUnit() != UnitNone
}

// DefaultUnit is the unit in which m is normally reported and validated.
func (m LabMeasurement) DefaultUnit() Unit {
	switch m {
	case MeasurementCreatinine, MeasurementTotalBilirubin, MeasurementDirectBilirubin:
		return UnitMicromolesPerLiter
	case MeasurementEGFRCKDEPI, MeasurementEGFRMDRD:
		return UnitMillilitersPerMinutePerBSA
	case MeasurementCreatinineClearanceCG:
		return UnitMillilitersPerMinute
	case MeasurementHemoglobin:
		return UnitMillimolesPerLiter
	case MeasurementAlbumin:
		return UnitGramsPerLiter
	case MeasurementASAT, MeasurementALAT, MeasurementAlkalinePhosphatase:
		return UnitUnitsPerLiter
	case MeasurementNeutrophilsAbs, MeasurementThrombocytesAbs, MeasurementLeukocytesAbs:
		return UnitBillionsPerLiter
	default:
		return UnitNone
	}
}

// Display returns the human-readable name used in evaluation messages.
func (m LabMeasurement) Display() string {
	switch m {
	case MeasurementCreatinine:
		return "creatinine"
	case MeasurementEGFRCKDEPI:
		return "eGFR (CKD-EPI)"
	case MeasurementEGFRMDRD:
		return "eGFR (MDRD)"
	case MeasurementCreatinineClearanceCG:
		return "creatinine clearance (Cockcroft-Gault)"
	case MeasurementHemoglobin:
		return "hemoglobin"
	case MeasurementAlbumin:
		return "albumin"
	case MeasurementTotalBilirubin:
		return "total bilirubin"
	case MeasurementDirectBilirubin:
		return "direct bilirubin"
	case MeasurementASAT:
		return "ASAT"
	case MeasurementALAT:
		return "ALAT"
	case MeasurementAlkalinePhosphatase:
		return "alkaline phosphatase"
	case MeasurementNeutrophilsAbs:
		return "neutrophils absolute"
	case MeasurementThrombocytesAbs:
		return "thrombocytes absolute"
	case MeasurementLeukocytesAbs:
		return "leukocytes absolute"
	default:
		return string(m)
	}
}

// ParseLabMeasurement validates a measurement code.
func ParseLabMeasurement(s string) (LabMeasurement, error) {
	m := LabMeasurement(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMeasurement, s)
	}
	return m, nil
}

// UnmarshalText makes LabMeasurement a closed enum when decoding JSON or YAML.
func (m *LabMeasurement) UnmarshalText(text []byte) error {
	parsed, err := ParseLabMeasurement(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
