package labs

import (
	"fmt"
	"math"

	"github.com/trial-eligibility-engine/internal/domain"
)

// CreatinineMethod names a formula estimating kidney function from serum creatinine.
type CreatinineMethod string

const (
	MethodCKDEPI         CreatinineMethod = "CKD_EPI"
	MethodMDRD           CreatinineMethod = "MDRD"
	MethodCockcroftGault CreatinineMethod = "COCKCROFT_GAULT"
)

// IsValid reports whether m is a known method.
func (m CreatinineMethod) IsValid() bool {
	switch m {
	case MethodCKDEPI, MethodMDRD, MethodCockcroftGault:
		return true
	default:
		return false
	}
}

// Measurement is the lab measurement the method estimates directly.
func (m CreatinineMethod) Measurement() domain.LabMeasurement {
	switch m {
	case MethodCKDEPI:
		return domain.MeasurementEGFRCKDEPI
	case MethodMDRD:
		return domain.MeasurementEGFRMDRD
	case MethodCockcroftGault:
		return domain.MeasurementCreatinineClearanceCG
	default:
		return ""
	}
}

// KidneyFunctionInput carries the patient parameters shared by the formulas.
type KidneyFunctionInput struct {
	CreatinineMgPerDl float64
	Age               int
	Gender            domain.Gender
	// WeightKg is only used by Cockcroft-Gault.
	WeightKg float64
}

// genders returns the genders to compute candidates for. An unrecorded
// gender yields a candidate for each.
func (in KidneyFunctionInput) genders() []domain.Gender {
	if in.Gender == domain.GenderMale || in.Gender == domain.GenderFemale {
		return []domain.Gender{in.Gender}
	}
	return []domain.Gender{domain.GenderFemale, domain.GenderMale}
}

// CKDEPIValues returns the CKD-EPI (2009) eGFR candidates in mL/min/1.73m2.
// Race is not recorded, so each gender yields a value with and without the
// race coefficient.
func CKDEPIValues(in KidneyFunctionInput) []float64 {
	var values []float64
	for _, g := range in.genders() {
		kappa, alpha, genderFactor := 0.9, -0.411, 1.0
		if g == domain.GenderFemale {
			kappa, alpha, genderFactor = 0.7, -0.329, 1.018
		}
		ratio := in.CreatinineMgPerDl / kappa
		base := 141 *
			math.Pow(math.Min(ratio, 1), alpha) *
			math.Pow(math.Max(ratio, 1), -1.209) *
			math.Pow(0.993, float64(in.Age)) *
			genderFactor
		values = append(values, base, base*1.159)
	}
	return values
}

// MDRDValues returns the MDRD eGFR candidates in mL/min/1.73m2, with and
// without the race coefficient.
func MDRDValues(in KidneyFunctionInput) []float64 {
	var values []float64
	for _, g := range in.genders() {
		genderFactor := 1.0
		if g == domain.GenderFemale {
			genderFactor = 0.742
		}
		base := 175 *
			math.Pow(in.CreatinineMgPerDl, -1.154) *
			math.Pow(float64(in.Age), -0.203) *
			genderFactor
		values = append(values, base, base*1.212)
	}
	return values
}

// CockcroftGaultValues returns the creatinine clearance candidates in mL/min.
func CockcroftGaultValues(in KidneyFunctionInput) []float64 {
	var values []float64
	for _, g := range in.genders() {
		genderFactor := 1.0
		if g == domain.GenderFemale {
			genderFactor = 0.85
		}
		values = append(values, float64(140-in.Age)*in.WeightKg*genderFactor/(72*in.CreatinineMgPerDl))
	}
	return values
}

// Values computes the candidates for method m.
func (m CreatinineMethod) Values(in KidneyFunctionInput) ([]float64, error) {
	if in.CreatinineMgPerDl <= 0 {
		return nil, fmt.Errorf("creatinine must be positive, got %v", in.CreatinineMgPerDl)
	}
	switch m {
	case MethodCKDEPI:
		return CKDEPIValues(in), nil
	case MethodMDRD:
		if in.Age <= 0 {
			return nil, fmt.Errorf("MDRD requires a positive age, got %d", in.Age)
		}
		return MDRDValues(in), nil
	case MethodCockcroftGault:
		return CockcroftGaultValues(in), nil
	default:
		return nil, fmt.Errorf("unknown creatinine method %q", m)
	}
}

// ReconcileCandidates merges the verdicts of several candidate values of one
// derived quantity. PASS next to FAIL is ambiguous and gives UNDETERMINED; any
// UNDETERMINED candidate gives UNDETERMINED; unanimous FAIL gives FAIL;
// anything else gives PASS. No candidates at all is UNDETERMINED.
func ReconcileCandidates(results []domain.EvaluationResult) domain.EvaluationResult {
	if len(results) == 0 {
		return domain.UNDETERMINED
	}
	hasPass, hasFail, hasUndetermined, allFail := false, false, false, true
	for _, r := range results {
		switch r {
		case domain.PASS:
			hasPass = true
		case domain.FAIL:
			hasFail = true
		case domain.UNDETERMINED:
			hasUndetermined = true
		}
		if r != domain.FAIL {
			allFail = false
		}
	}
	switch {
	case hasPass && hasFail:
		return domain.UNDETERMINED
	case hasUndetermined:
		return domain.UNDETERMINED
	case allFail:
		return domain.FAIL
	default:
		return domain.PASS
	}
}

// DemoteForMissingWeight weakens a Cockcroft-Gault verdict computed with an
// assumed body weight: FAIL becomes UNDETERMINED and PASS becomes WARN.
func DemoteForMissingWeight(result domain.EvaluationResult) domain.EvaluationResult {
	switch result {
	case domain.FAIL:
		return domain.UNDETERMINED
	case domain.PASS:
		return domain.WARN
	default:
		return result
	}
}

// DerivedEstimate is the reconciled verdict of a creatinine-derived estimate.
type DerivedEstimate struct {
	Method     CreatinineMethod
	Candidates []float64
	Result     domain.EvaluationResult
}

// EvaluateDerived computes the candidates of method, compares each against
// threshold and reconciles them. The creatinine comparator is inverted since
// the estimates fall as creatinine rises. weightKnown=false demotes the
// Cockcroft-Gault verdict.
func EvaluateDerived(method CreatinineMethod, in KidneyFunctionInput, creatinineComparator domain.Comparator,
	threshold float64, direction domain.Direction, weightKnown bool) (DerivedEstimate, error) {
	values, err := method.Values(in)
	if err != nil {
		return DerivedEstimate{}, err
	}
	comparator := creatinineComparator.Inverse()
	results := make([]domain.EvaluationResult, 0, len(values))
	for _, v := range values {
		results = append(results, EvaluateVersusThreshold(v, comparator, threshold, direction))
	}
	result := ReconcileCandidates(results)
	if method == MethodCockcroftGault && !weightKnown {
		result = DemoteForMissingWeight(result)
	}
	return DerivedEstimate{Method: method, Candidates: values, Result: result}, nil
}
