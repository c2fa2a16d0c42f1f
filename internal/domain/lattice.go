package domain

// WorstOf returns the lowest comparable result, so FAIL dominates.
// Non-comparable results are skipped; ok is false when none remain.
func WorstOf(results ...EvaluationResult) (worst EvaluationResult, ok bool) {
	for _, r := range results {
		if !r.IsComparable() {
			continue
		}
		if !ok || r.IsWorseThan(worst) {
			worst, ok = r, true
		}
	}
	return worst, ok
}

// BestOf returns the highest comparable result, so PASS dominates.
// Non-comparable results are skipped; ok is false when none remain.
func BestOf(results ...EvaluationResult) (best EvaluationResult, ok bool) {
	for _, r := range results {
		if !r.IsComparable() {
			continue
		}
		if !ok || r.IsBetterThan(best) {
			best, ok = r, true
		}
	}
	return best, ok
}
