package rules

import (
	"fmt"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
	"github.com/trial-eligibility-engine/internal/labs"
)

type directBilirubinPercentage struct {
	maxPercentage float64
	converter     *labs.Converter
}

// HasLimitedBilirubinPercentageOfTotal requires direct bilirubin to be at
// most maxPercentage of the total bilirubin measured on the same day.
func HasLimitedBilirubinPercentageOfTotal(env Environment, maxPercentage float64) (domain.EvaluationFunction, error) {
	if maxPercentage <= 0 || maxPercentage > 100 {
		return nil, domain.NewValidationError("value", "percentage must be in (0, 100]", maxPercentage)
	}
	return env.withFreshness(domain.MeasurementDirectBilirubin, &directBilirubinPercentage{
		maxPercentage: maxPercentage,
		converter:     env.Converter,
	})
}

func (r *directBilirubinPercentage) EvaluateLab(record *domain.PatientRecord, direct domain.LabValue) domain.Evaluation {
	if direct.Code != domain.MeasurementDirectBilirubin {
		domain.Preconditionf("rules", "direct bilirubin percentage evaluated on %s", direct.Code)
	}

	total, ok := sameDayLab(record, domain.MeasurementTotalBilirubin, direct)
	if !ok {
		return evaluation.Undetermined(
			"No total bilirubin measured on the day of direct bilirubin",
			"Direct bilirubin percentage undetermined",
		)
	}

	directValue, okDirect := r.converter.Convert(direct.Code, direct.Value, direct.Unit, domain.UnitMicromolesPerLiter)
	totalValue, okTotal := r.converter.Convert(total.Code, total.Value, total.Unit, domain.UnitMicromolesPerLiter)
	if !okDirect || !okTotal || totalValue <= 0 {
		return evaluation.Undetermined(
			"Direct and total bilirubin cannot be expressed in a common unit",
			"Direct bilirubin percentage undetermined",
		)
	}

	// A bound on the numerator or denominator bounds the ratio; bounds on both do not.
	var comparator domain.Comparator
	switch {
	case direct.Comparator != domain.ComparatorNone && total.Comparator != domain.ComparatorNone:
		return evaluation.Undetermined(
			"Direct and total bilirubin are both reported outside their measurable range",
			"Direct bilirubin percentage undetermined",
		)
	case direct.Comparator != domain.ComparatorNone:
		comparator = direct.Comparator
	default:
		comparator = total.Comparator.Inverse()
	}

	percentage := 100 * directValue / totalValue
	result := labs.EvaluateVersusMaxValue(percentage, comparator, r.maxPercentage)
	switch result {
	case domain.PASS:
		return labVerdict(result,
			fmt.Sprintf("Direct bilirubin is %.1f%% of total, at most %.1f%%", percentage, r.maxPercentage),
			"Adequate direct bilirubin percentage")
	case domain.UNDETERMINED:
		return labVerdict(result,
			fmt.Sprintf("Direct bilirubin percentage %s%.1f%% cannot be compared with %.1f%%", comparator, percentage, r.maxPercentage),
			"Direct bilirubin percentage undetermined")
	default:
		return labVerdict(result,
			fmt.Sprintf("Direct bilirubin is %.1f%% of total, above %.1f%%", percentage, r.maxPercentage),
			"Inadequate direct bilirubin percentage")
	}
}

func sameDayLab(record *domain.PatientRecord, m domain.LabMeasurement, ref domain.LabValue) (domain.LabValue, bool) {
	y, mo, d := ref.Date.Date()
	for _, lab := range record.LabsFor(m) {
		ly, lm, ld := lab.Date.Date()
		if ly == y && lm == mo && ld == d {
			return lab, true
		}
	}
	return domain.LabValue{}, false
}
