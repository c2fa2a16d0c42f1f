package rules

import (
	"fmt"
	"strings"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
)

type primaryTumorDoid struct {
	model  domain.DoidModel
	target string
	term   string
	exact  bool
}

// PrimaryTumorBelongsToDoid passes when a primary tumor DOID is target or one
// of its specialisations.
func PrimaryTumorBelongsToDoid(env Environment, target string) (domain.EvaluationFunction, error) {
	return newPrimaryTumorDoid(env, target, false)
}

// HasExactPrimaryTumorDoid passes only when a primary tumor DOID equals target.
func HasExactPrimaryTumorDoid(env Environment, target string) (domain.EvaluationFunction, error) {
	return newPrimaryTumorDoid(env, target, true)
}

func newPrimaryTumorDoid(env Environment, target string, exact bool) (domain.EvaluationFunction, error) {
	if err := checkDoidRule(env, target); err != nil {
		return nil, err
	}
	return &primaryTumorDoid{
		model:  env.Doid,
		target: target,
		term:   termOrID(env.Doid, target),
		exact:  exact,
	}, nil
}

func (r *primaryTumorDoid) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	doids := record.Tumor.PrimaryTumorDoids
	if len(doids) == 0 {
		return evaluation.Undetermined(
			fmt.Sprintf("Unknown primary tumor type, cannot determine if tumor is %s", r.term),
			"Unknown tumor type",
		)
	}

	var unknown []string
	for _, doid := range doids {
		if doid == r.target || (!r.exact && r.model.Subsumes(doid, r.target)) {
			return evaluation.Pass(
				fmt.Sprintf("Patient has %s (DOID %s)", r.term, doid),
				fmt.Sprintf("Tumor type %s", r.term),
			)
		}
		if !isKnownDoid(r.model, doid) {
			unknown = append(unknown, doid)
		}
	}
	if len(unknown) > 0 {
		return evaluation.Undetermined(
			fmt.Sprintf("Primary tumor DOID %s not found in disease ontology, cannot determine if tumor is %s",
				strings.Join(unknown, ", "), r.term),
			"Unknown tumor type",
		)
	}
	return evaluation.Fail(
		fmt.Sprintf("Patient has no %s", r.term),
		fmt.Sprintf("Tumor type not %s", r.term),
	)
}

type priorConditionDoid struct {
	model  domain.DoidModel
	target string
	term   string
}

// HasHadPriorConditionWithDoid passes when a prior condition is target or a
// specialisation of it.
func HasHadPriorConditionWithDoid(env Environment, target string) (domain.EvaluationFunction, error) {
	if err := checkDoidRule(env, target); err != nil {
		return nil, err
	}
	return &priorConditionDoid{model: env.Doid, target: target, term: termOrID(env.Doid, target)}, nil
}

func (r *priorConditionDoid) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	var unknown []string
	for _, condition := range record.PriorOtherConditions {
		for _, doid := range condition.Doids {
			if r.model.Subsumes(doid, r.target) {
				return evaluation.Pass(
					fmt.Sprintf("Patient has history of %s (%s)", r.term, condition.Name),
					fmt.Sprintf("History of %s", r.term),
				)
			}
			if !isKnownDoid(r.model, doid) {
				unknown = append(unknown, fmt.Sprintf("%s (%s)", doid, condition.Name))
			}
		}
	}
	if len(unknown) > 0 {
		return evaluation.Undetermined(
			fmt.Sprintf("Prior condition DOID %s not found in disease ontology, cannot determine history of %s",
				strings.Join(unknown, ", "), r.term),
			fmt.Sprintf("History of %s undetermined", r.term),
		)
	}
	return evaluation.Fail(
		fmt.Sprintf("Patient has no history of %s", r.term),
		fmt.Sprintf("No history of %s", r.term),
	)
}

func checkDoidRule(env Environment, target string) error {
	if env.Doid == nil {
		return domain.NewValidationError("doid", "disease ontology is required", nil)
	}
	if target == "" {
		return fmt.Errorf("doid: %w", domain.ErrMissingParameter)
	}
	return nil
}

// isKnownDoid reports whether the ontology has a term or a parent for doid.
func isKnownDoid(model domain.DoidModel, doid string) bool {
	if _, ok := model.TermFor(doid); ok {
		return true
	}
	return len(model.AncestorsOf(doid)) > 1
}

func termOrID(model domain.DoidModel, doid string) string {
	if term, ok := model.TermFor(doid); ok {
		return term
	}
	return "DOID " + doid
}
