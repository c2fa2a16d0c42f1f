package evaluation

import (
	"fmt"

	"github.com/trial-eligibility-engine/internal/domain"
)

type and struct {
	functions []domain.EvaluationFunction
}

type or struct {
	functions []domain.EvaluationFunction
}

type not struct {
	function domain.EvaluationFunction
}

type fallback struct {
	primary   domain.EvaluationFunction
	secondary domain.EvaluationFunction
}

func checkChildren(kind string, functions []domain.EvaluationFunction) error {
	if len(functions) == 0 {
		return fmt.Errorf("%s: %w", kind, domain.ErrEmptyComposite)
	}
	for i, f := range functions {
		if f == nil {
			return fmt.Errorf("%s child %d: %w", kind, i, domain.ErrNilFunction)
		}
	}
	return nil
}

// NewAnd requires every child to hold. The result is the worst child result.
func NewAnd(functions ...domain.EvaluationFunction) (domain.EvaluationFunction, error) {
	if err := checkChildren("and", functions); err != nil {
		return nil, err
	}
	return &and{functions: append([]domain.EvaluationFunction(nil), functions...)}, nil
}

// NewOr requires at least one child to hold. The result is the best child result.
func NewOr(functions ...domain.EvaluationFunction) (domain.EvaluationFunction, error) {
	if err := checkChildren("or", functions); err != nil {
		return nil, err
	}
	return &or{functions: append([]domain.EvaluationFunction(nil), functions...)}, nil
}

// NewNot negates function. PASS and FAIL swap; WARN counts as a soft pass and
// becomes FAIL; UNDETERMINED, NOT_EVALUATED and NOT_IMPLEMENTED pass through.
func NewNot(function domain.EvaluationFunction) (domain.EvaluationFunction, error) {
	if function == nil {
		return nil, fmt.Errorf("not: %w", domain.ErrNilFunction)
	}
	return &not{function: function}, nil
}

// NewFallback returns the primary evaluation unless it is UNDETERMINED, in
// which case the secondary is evaluated and returned instead.
func NewFallback(primary, secondary domain.EvaluationFunction) (domain.EvaluationFunction, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("fallback: %w", domain.ErrNilFunction)
	}
	return &fallback{primary: primary, secondary: secondary}, nil
}

func (a *and) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	return merge(evaluateAll(a.functions, record), domain.WorstOf, allRecoverable)
}

func (o *or) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	return merge(evaluateAll(o.functions, record), domain.BestOf, anyRecoverable)
}

func (n *not) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	e := n.function.Evaluate(record)

	var result domain.EvaluationResult
	switch e.Result {
	case domain.PASS, domain.WARN:
		result = domain.FAIL
	case domain.FAIL:
		result = domain.PASS
	default:
		return e
	}
	return domain.Evaluation{
		Result:       result,
		Recoverable:  e.Recoverable,
		Pass:         e.Fail,
		Undetermined: e.Undetermined,
		Fail:         e.Pass.Union(e.Warn),
	}
}

func (f *fallback) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	primary := f.primary.Evaluate(record)
	if primary.Result != domain.UNDETERMINED {
		return primary
	}
	return f.secondary.Evaluate(record)
}

func evaluateAll(functions []domain.EvaluationFunction, record *domain.PatientRecord) []domain.Evaluation {
	evaluations := make([]domain.Evaluation, len(functions))
	for i, f := range functions {
		evaluations[i] = f.Evaluate(record)
	}
	return evaluations
}

// merge picks the overall result with pick and unions the messages of the
// children that produced it. A non-comparable child result is returned as is.
func merge(evaluations []domain.Evaluation, pick func(...domain.EvaluationResult) (domain.EvaluationResult, bool),
	recoverable func([]domain.Evaluation) bool) domain.Evaluation {
	results := make([]domain.EvaluationResult, len(evaluations))
	for i, e := range evaluations {
		if !e.Result.IsComparable() {
			return e
		}
		results[i] = e.Result
	}

	overall, _ := pick(results...)
	var contributing []domain.Evaluation
	for _, e := range evaluations {
		if e.Result == overall {
			contributing = append(contributing, e)
		}
	}

	merged := domain.Evaluation{Result: overall, Recoverable: recoverable(contributing)}
	for _, e := range contributing {
		merged.Pass = merged.Pass.Union(e.Pass)
		merged.Warn = merged.Warn.Union(e.Warn)
		merged.Undetermined = merged.Undetermined.Union(e.Undetermined)
		merged.Fail = merged.Fail.Union(e.Fail)
	}
	return merged
}

func allRecoverable(evaluations []domain.Evaluation) bool {
	for _, e := range evaluations {
		if !e.Recoverable {
			return false
		}
	}
	return len(evaluations) > 0
}

func anyRecoverable(evaluations []domain.Evaluation) bool {
	for _, e := range evaluations {
		if e.Recoverable {
			return true
		}
	}
	return false
}
