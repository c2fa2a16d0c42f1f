package domain

import (
	"sort"
	"time"
)

// Gender as recorded on the patient record.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
)

// LabValue is a single qualified lab measurement.
type LabValue struct {
	Code        LabMeasurement `json:"code"`
	Date        time.Time      `json:"date"`
	Value       float64        `json:"value"`
	Unit        Unit           `json:"unit"`
	Comparator  Comparator     `json:"comparator,omitempty"`
	RefLimitLow *float64       `json:"ref_limit_low,omitempty"`
	RefLimitUp  *float64       `json:"ref_limit_up,omitempty"`
}

// BodyWeight is a dated body weight in kilograms.
type BodyWeight struct {
	Date      time.Time `json:"date"`
	Kilograms float64   `json:"kilograms"`
}

// TumorDetails holds the disease ontology classification of the primary tumor.
type TumorDetails struct {
	PrimaryTumorDoids []string `json:"primary_tumor_doids"`
}

// PriorOtherCondition is a non-oncological condition in the patient history.
type PriorOtherCondition struct {
	Name  string   `json:"name"`
	Doids []string `json:"doids"`
	Year  *int     `json:"year,omitempty"`
}

// PatientRecord is the read-only clinical record rules are evaluated against.
// The engine never mutates it.
type PatientRecord struct {
	PatientID            string                `json:"patient_id"`
	BirthYear            int                   `json:"birth_year"`
	Gender               Gender                `json:"gender"`
	BodyWeights          []BodyWeight          `json:"body_weights,omitempty"`
	LabValues            []LabValue            `json:"lab_values,omitempty"`
	Tumor                TumorDetails          `json:"tumor"`
	PriorOtherConditions []PriorOtherCondition `json:"prior_other_conditions,omitempty"`
}

// LabsFor returns the values measured for m, most recent first. The returned
// slice is a fresh copy.
func (r *PatientRecord) LabsFor(m LabMeasurement) []LabValue {
	var labs []LabValue
	for _, lab := range r.LabValues {
		if lab.Code == m {
			labs = append(labs, lab)
		}
	}
	sort.SliceStable(labs, func(i, j int) bool {
		return labs[i].Date.After(labs[j].Date)
	})
	return labs
}

// MostRecentLab returns the latest value measured for m.
func (r *PatientRecord) MostRecentLab(m LabMeasurement) (LabValue, bool) {
	labs := r.LabsFor(m)
	if len(labs) == 0 {
		return LabValue{}, false
	}
	return labs[0], true
}

// LatestBodyWeight returns the most recent body weight.
func (r *PatientRecord) LatestBodyWeight() (BodyWeight, bool) {
	var latest BodyWeight
	found := false
	for _, w := range r.BodyWeights {
		if !found || w.Date.After(latest.Date) {
			latest, found = w, true
		}
	}
	return latest, found
}

// AgeInYear returns the patient age in the given year, or false when the
// birth year is not recorded.
func (r *PatientRecord) AgeInYear(year int) (int, bool) {
	if r.BirthYear <= 0 || year < r.BirthYear {
		return 0, false
	}
	return year - r.BirthYear, true
}
