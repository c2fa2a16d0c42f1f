package rules

import (
	"fmt"
	"strings"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
	"github.com/trial-eligibility-engine/internal/labs"
)

// derivedKidneyFunction estimates kidney function from a creatinine value.
type derivedKidneyFunction struct {
	method        labs.CreatinineMethod
	minValue      float64
	converter     *labs.Converter
	referenceYear int
	defaultWeight float64
}

// HasSufficientDerivedCreatinineClearance requires the kidney function
// estimated by method from the most recent creatinine to be at least minValue.
func HasSufficientDerivedCreatinineClearance(env Environment, method labs.CreatinineMethod, minValue float64) (domain.EvaluationFunction, error) {
	if !method.IsValid() {
		return nil, domain.NewValidationError("method", "unknown creatinine method", method)
	}
	return env.withFreshness(domain.MeasurementCreatinine, &derivedKidneyFunction{
		method:        method,
		minValue:      minValue,
		converter:     env.Converter,
		referenceYear: env.ReferenceDate.Year(),
		defaultWeight: env.DefaultBodyWeightKg,
	})
}

// HasSufficientEGFR prefers a directly reported CKD-EPI eGFR and falls back
// to deriving it from creatinine when no usable eGFR exists.
func HasSufficientEGFR(env Environment, minValue float64) (domain.EvaluationFunction, error) {
	direct, err := HasSufficientLabValue(env, domain.MeasurementEGFRCKDEPI, minValue, domain.UnitMillilitersPerMinutePerBSA)
	if err != nil {
		return nil, err
	}
	derived, err := HasSufficientDerivedCreatinineClearance(env, labs.MethodCKDEPI, minValue)
	if err != nil {
		return nil, err
	}
	return evaluation.NewFallback(direct, derived)
}

func (r *derivedKidneyFunction) EvaluateLab(record *domain.PatientRecord, lab domain.LabValue) domain.Evaluation {
	name := r.method.Measurement().Display()
	mgPerDl, ok := r.converter.Convert(domain.MeasurementCreatinine, lab.Value, lab.Unit, domain.UnitMilligramsPerDeciliter)
	if !ok {
		return evaluation.Undetermined(
			fmt.Sprintf("Creatinine in %s cannot be used to derive %s", lab.Unit, name),
			fmt.Sprintf("%s undetermined", name),
		)
	}

	age, ok := record.AgeInYear(r.referenceYear)
	if !ok {
		return evaluation.Undetermined(
			fmt.Sprintf("Birth year unknown, %s cannot be derived", name),
			fmt.Sprintf("%s undetermined", name),
		)
	}

	weight, weightKnown := record.LatestBodyWeight()
	input := labs.KidneyFunctionInput{
		CreatinineMgPerDl: mgPerDl,
		Age:               age,
		Gender:            record.Gender,
		WeightKg:          weight.Kilograms,
	}
	if !weightKnown {
		input.WeightKg = r.defaultWeight
	}

	estimate, err := labs.EvaluateDerived(r.method, input, lab.Comparator, r.minValue, domain.DirectionMin, weightKnown)
	if err != nil {
		return evaluation.Undetermined(
			fmt.Sprintf("%s could not be derived: %v", name, err),
			fmt.Sprintf("%s undetermined", name),
		)
	}

	values := formatCandidates(estimate.Candidates)
	switch estimate.Result {
	case domain.PASS:
		return labVerdict(estimate.Result,
			fmt.Sprintf("%s derived from creatinine (%s) is at least %.1f", name, values, r.minValue),
			fmt.Sprintf("Adequate %s", name))
	case domain.WARN:
		return labVerdict(estimate.Result,
			fmt.Sprintf("%s derived from creatinine (%s) is at least %.1f assuming a body weight of %.0f kg", name, values, r.minValue, r.defaultWeight),
			fmt.Sprintf("%s based on assumed body weight", name))
	case domain.UNDETERMINED:
		return labVerdict(estimate.Result,
			fmt.Sprintf("%s derived from creatinine (%s) is ambiguous against minimum of %.1f", name, values, r.minValue),
			fmt.Sprintf("%s undetermined", name))
	default:
		return labVerdict(estimate.Result,
			fmt.Sprintf("%s derived from creatinine (%s) is below %.1f", name, values, r.minValue),
			fmt.Sprintf("Inadequate %s", name))
	}
}

func formatCandidates(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.1f", v)
	}
	return strings.Join(parts, ", ")
}
