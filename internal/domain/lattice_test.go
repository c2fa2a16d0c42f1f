package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorstOf(t *testing.T) {
	tests := []struct {
		name    string
		results []EvaluationResult
		want    EvaluationResult
		wantOK  bool
	}{
		{"fail dominates", []EvaluationResult{PASS, FAIL, WARN}, FAIL, true},
		{"warn below undetermined", []EvaluationResult{UNDETERMINED, WARN, PASS}, WARN, true},
		{"single", []EvaluationResult{PASS}, PASS, true},
		{"skips non-comparable", []EvaluationResult{NOT_EVALUATED, PASS}, PASS, true},
		{"only non-comparable", []EvaluationResult{NOT_IMPLEMENTED}, "", false},
		{"empty", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := WorstOf(tt.results...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBestOf(t *testing.T) {
	tests := []struct {
		name    string
		results []EvaluationResult
		want    EvaluationResult
		wantOK  bool
	}{
		{"pass dominates", []EvaluationResult{FAIL, PASS, WARN}, PASS, true},
		{"undetermined above warn", []EvaluationResult{FAIL, WARN, UNDETERMINED}, UNDETERMINED, true},
		{"all fail", []EvaluationResult{FAIL, FAIL}, FAIL, true},
		{"only non-comparable", []EvaluationResult{NOT_EVALUATED}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BestOf(tt.results...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
