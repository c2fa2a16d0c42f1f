package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-engine/internal/domain"
)

var allResults = []domain.EvaluationResult{
	domain.PASS, domain.WARN, domain.UNDETERMINED, domain.FAIL,
	domain.NOT_EVALUATED, domain.NOT_IMPLEMENTED,
}

func constantOf(result domain.EvaluationResult, msg string) domain.EvaluationFunction {
	return Constant(Of(result, false, msg, msg))
}

func TestAnd_WorstResultWins(t *testing.T) {
	f, err := NewAnd(
		constantOf(domain.PASS, "pass"),
		constantOf(domain.WARN, "warn"),
		constantOf(domain.UNDETERMINED, "undetermined"),
	)
	require.NoError(t, err)

	e := f.Evaluate(&domain.PatientRecord{})
	assert.Equal(t, domain.WARN, e.Result)
	assert.Equal(t, []string{"warn"}, e.Warn.Specific.Items())
	assert.True(t, e.Pass.IsEmpty())
	assert.True(t, e.Undetermined.IsEmpty())
}

func TestAnd_UnionsMessagesOfContributingChildren(t *testing.T) {
	f, err := NewAnd(
		constantOf(domain.FAIL, "low hemoglobin"),
		constantOf(domain.PASS, "ok"),
		constantOf(domain.FAIL, "low albumin"),
	)
	require.NoError(t, err)

	e := f.Evaluate(&domain.PatientRecord{})
	assert.Equal(t, domain.FAIL, e.Result)
	assert.Equal(t, []string{"low albumin", "low hemoglobin"}, e.Fail.Specific.Items())
	assert.True(t, e.Pass.IsEmpty())
}

func TestOr_BestResultWins(t *testing.T) {
	f, err := NewOr(
		constantOf(domain.FAIL, "fail"),
		constantOf(domain.UNDETERMINED, "undetermined"),
		constantOf(domain.WARN, "warn"),
	)
	require.NoError(t, err)

	e := f.Evaluate(&domain.PatientRecord{})
	assert.Equal(t, domain.UNDETERMINED, e.Result)
	assert.Equal(t, []string{"undetermined"}, e.Undetermined.General.Items())
	assert.True(t, e.Fail.IsEmpty())
}

func TestAndOr_SingleChildIsIdentity(t *testing.T) {
	for _, r := range allResults {
		child := Constant(Of(r, true, "specific", "general"))
		want := child.Evaluate(nil)

		and, err := NewAnd(child)
		require.NoError(t, err)
		or, err := NewOr(child)
		require.NoError(t, err)

		assert.Equal(t, want, and.Evaluate(nil), r)
		assert.Equal(t, want, or.Evaluate(nil), r)
	}
}

func TestAndOr_PropagateNonComparableChild(t *testing.T) {
	for _, r := range []domain.EvaluationResult{domain.NOT_EVALUATED, domain.NOT_IMPLEMENTED} {
		and, err := NewAnd(constantOf(domain.FAIL, "fail"), Constant(domain.Evaluation{Result: r}))
		require.NoError(t, err)
		or, err := NewOr(constantOf(domain.PASS, "pass"), Constant(domain.Evaluation{Result: r}))
		require.NoError(t, err)

		assert.Equal(t, r, and.Evaluate(nil).Result)
		assert.Equal(t, r, or.Evaluate(nil).Result)
	}
}

func TestAnd_Recoverability(t *testing.T) {
	recoverable := Constant(RecoverableFail("lab", "lab"))
	hard := Constant(Fail("condition", "condition"))
	pass := constantOf(domain.PASS, "pass")

	f, err := NewAnd(recoverable, pass)
	require.NoError(t, err)
	assert.True(t, f.Evaluate(nil).Recoverable)

	f, err = NewAnd(recoverable, hard)
	require.NoError(t, err)
	assert.False(t, f.Evaluate(nil).Recoverable)

	f, err = NewOr(recoverable, hard)
	require.NoError(t, err)
	assert.True(t, f.Evaluate(nil).Recoverable)
}

func TestNot(t *testing.T) {
	tests := []struct {
		child domain.EvaluationResult
		want  domain.EvaluationResult
	}{
		{domain.PASS, domain.FAIL},
		{domain.WARN, domain.FAIL},
		{domain.FAIL, domain.PASS},
		{domain.UNDETERMINED, domain.UNDETERMINED},
		{domain.NOT_EVALUATED, domain.NOT_EVALUATED},
		{domain.NOT_IMPLEMENTED, domain.NOT_IMPLEMENTED},
	}

	for _, tt := range tests {
		t.Run(string(tt.child), func(t *testing.T) {
			f, err := NewNot(constantOf(tt.child, "msg"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Evaluate(nil).Result)
		})
	}
}

func TestNot_SwapsMessageBuckets(t *testing.T) {
	child := Constant(domain.Evaluation{
		Result:       domain.PASS,
		Pass:         domain.Messages{Specific: domain.NewMessageSet("has condition")},
		Warn:         domain.Messages{Specific: domain.NewMessageSet("possibly has condition")},
		Undetermined: domain.Messages{Specific: domain.NewMessageSet("unclear")},
		Fail:         domain.Messages{Specific: domain.NewMessageSet("no condition")},
	})
	f, err := NewNot(child)
	require.NoError(t, err)

	e := f.Evaluate(nil)
	assert.Equal(t, []string{"no condition"}, e.Pass.Specific.Items())
	assert.Equal(t, []string{"has condition", "possibly has condition"}, e.Fail.Specific.Items())
	assert.Equal(t, []string{"unclear"}, e.Undetermined.Specific.Items())
	assert.True(t, e.Warn.IsEmpty())
}

func TestNot_DoubleNegation(t *testing.T) {
	for _, r := range []domain.EvaluationResult{domain.PASS, domain.FAIL, domain.UNDETERMINED, domain.NOT_EVALUATED} {
		child := constantOf(r, "msg")
		inner, err := NewNot(child)
		require.NoError(t, err)
		outer, err := NewNot(inner)
		require.NoError(t, err)

		assert.Equal(t, child.Evaluate(nil), outer.Evaluate(nil), r)
	}
}

func TestFallback(t *testing.T) {
	secondary := constantOf(domain.FAIL, "secondary")

	for _, r := range allResults {
		primary := constantOf(r, "primary")
		f, err := NewFallback(primary, secondary)
		require.NoError(t, err)

		got := f.Evaluate(nil)
		if r == domain.UNDETERMINED {
			assert.Equal(t, secondary.Evaluate(nil), got)
		} else {
			assert.Equal(t, primary.Evaluate(nil), got, r)
		}
	}
}

func TestFallback_SkipsSecondaryWhenPrimaryDecides(t *testing.T) {
	called := false
	secondary := FunctionFunc(func(*domain.PatientRecord) domain.Evaluation {
		called = true
		return Pass("secondary", "secondary")
	})
	f, err := NewFallback(constantOf(domain.FAIL, "primary"), secondary)
	require.NoError(t, err)

	f.Evaluate(nil)
	assert.False(t, called)
}

func TestCombinatorConstructors_RejectBadChildren(t *testing.T) {
	_, err := NewAnd()
	assert.ErrorIs(t, err, domain.ErrEmptyComposite)

	_, err = NewOr(constantOf(domain.PASS, "x"), nil)
	assert.ErrorIs(t, err, domain.ErrNilFunction)

	_, err = NewNot(nil)
	assert.ErrorIs(t, err, domain.ErrNilFunction)

	_, err = NewFallback(constantOf(domain.PASS, "x"), nil)
	assert.ErrorIs(t, err, domain.ErrNilFunction)
}
