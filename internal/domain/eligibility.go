package domain

import "time"

// CriterionReference identifies an eligibility criterion within a trial
// definition, e.g. "I-01" with its protocol text.
type CriterionReference struct {
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

// CriterionEvaluation pairs a criterion with its evaluation for one patient.
type CriterionEvaluation struct {
	Reference  CriterionReference `json:"reference"`
	Evaluation Evaluation         `json:"evaluation"`
}

// CohortMatch is the eligibility of a patient for a single cohort.
type CohortMatch struct {
	CohortID              string                `json:"cohort_id"`
	Open                  bool                  `json:"open"`
	IsPotentiallyEligible bool                  `json:"is_potentially_eligible"`
	Evaluations           []CriterionEvaluation `json:"evaluations"`
}

// TrialMatch is the eligibility of a patient for a trial and its cohorts.
type TrialMatch struct {
	PatientID             string                `json:"patient_id"`
	TrialID               string                `json:"trial_id"`
	IsPotentiallyEligible bool                  `json:"is_potentially_eligible"`
	Evaluations           []CriterionEvaluation `json:"evaluations"`
	Cohorts               []CohortMatch         `json:"cohorts,omitempty"`
	EvaluatedAt           time.Time             `json:"evaluated_at"`
}

// IsPotentiallyEligible reports whether no evaluation is an unrecoverable FAIL.
// Recoverable failures, warnings and undetermined criteria leave the patient
// potentially eligible pending review.
func IsPotentiallyEligible(evaluations []CriterionEvaluation) bool {
	for _, ce := range evaluations {
		if ce.Evaluation.IsExcluding() {
			return false
		}
	}
	return true
}

// EligibleCohorts returns the IDs of cohorts the patient may enter: open
// cohorts the patient is potentially eligible for. Closed cohorts are
// still reported in Cohorts but never listed here.
func (m *TrialMatch) EligibleCohorts() []string {
	var ids []string
	for _, c := range m.Cohorts {
		if c.Open && c.IsPotentiallyEligible {
			ids = append(ids, c.CohortID)
		}
	}
	return ids
}

// ResultCounts tallies the evaluation results across the trial and cohorts.
func (m *TrialMatch) ResultCounts() map[EvaluationResult]int {
	counts := make(map[EvaluationResult]int)
	for _, ce := range m.Evaluations {
		counts[ce.Evaluation.Result]++
	}
	for _, c := range m.Cohorts {
		for _, ce := range c.Evaluations {
			counts[ce.Evaluation.Result]++
		}
	}
	return counts
}
