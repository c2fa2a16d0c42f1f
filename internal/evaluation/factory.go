// Package evaluation composes evaluation functions: constructors for leaf
// evaluations, the And/Or/Not/Fallback combinators and the lab freshness
// wrapper.
//
// Every EvaluationFunction built here is stateless. A single instance is
// built per criterion and evaluated concurrently against any number of
// patient records.
package evaluation

import (
	"github.com/trial-eligibility-engine/internal/domain"
)

// Of builds an evaluation with the given result, placing the specific and
// general messages in the bucket belonging to that result.
func Of(result domain.EvaluationResult, recoverable bool, specific, general string) domain.Evaluation {
	msgs := domain.Messages{
		Specific: domain.NewMessageSet(specific),
		General:  domain.NewMessageSet(general),
	}
	e := domain.Evaluation{Result: result, Recoverable: recoverable}
	switch result {
	case domain.PASS:
		e.Pass = msgs
	case domain.WARN:
		e.Warn = msgs
	case domain.UNDETERMINED:
		e.Undetermined = msgs
	case domain.FAIL:
		e.Fail = msgs
	}
	return e
}

func Pass(specific, general string) domain.Evaluation {
	return Of(domain.PASS, false, specific, general)
}

func Warn(specific, general string) domain.Evaluation {
	return Of(domain.WARN, false, specific, general)
}

func Undetermined(specific, general string) domain.Evaluation {
	return Of(domain.UNDETERMINED, false, specific, general)
}

// Fail is an unrecoverable failure: the enclosing trial or cohort is excluded.
func Fail(specific, general string) domain.Evaluation {
	return Of(domain.FAIL, false, specific, general)
}

// RecoverableFail only fails the criterion itself.
func RecoverableFail(specific, general string) domain.Evaluation {
	return Of(domain.FAIL, true, specific, general)
}

func NotEvaluated() domain.Evaluation {
	return domain.Evaluation{Result: domain.NOT_EVALUATED}
}

func NotImplemented() domain.Evaluation {
	return domain.Evaluation{Result: domain.NOT_IMPLEMENTED}
}

// FunctionFunc adapts an ordinary function to domain.EvaluationFunction.
type FunctionFunc func(record *domain.PatientRecord) domain.Evaluation

// Evaluate calls f(record).
func (f FunctionFunc) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	return f(record)
}

// Constant returns a function always yielding e.
func Constant(e domain.Evaluation) domain.EvaluationFunction {
	return FunctionFunc(func(*domain.PatientRecord) domain.Evaluation { return e })
}
