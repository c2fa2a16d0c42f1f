package rules

import (
	"fmt"
	"sort"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/evaluation"
	"github.com/trial-eligibility-engine/internal/labs"
)

// Factory builds the evaluation function of a named rule.
type Factory func(env Environment, params RuleParameters) (domain.EvaluationFunction, error)

// Rule is a named, documented rule factory.
type Rule struct {
	Name        string
	Description string
	Factory     Factory
}

// Registry maps rule names to factories and builds criterion trees.
// It is not safe to Register concurrently with Build; the built functions
// are safe for concurrent use.
type Registry struct {
	env   Environment
	rules map[string]*Rule
}

// NewRegistry creates a registry holding the built-in rules.
func NewRegistry(env Environment) (*Registry, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule environment: %w", err)
	}
	r := &Registry{
		env:   env,
		rules: make(map[string]*Rule),
	}
	if err := r.initializeRules(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a rule. Names are unique.
func (r *Registry) Register(name, description string, factory Factory) error {
	if name == "" || factory == nil {
		return domain.NewValidationError("rule", "name and factory are required", name)
	}
	if _, exists := r.rules[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRule, name)
	}
	r.rules[name] = &Rule{Name: name, Description: description, Factory: factory}
	return nil
}

// RuleNames returns the registered names, sorted.
func (r *Registry) RuleNames() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description of a registered rule.
func (r *Registry) Describe(name string) (string, bool) {
	rule, ok := r.rules[name]
	if !ok {
		return "", false
	}
	return rule.Description, true
}

// Build turns a criterion definition into an evaluation function tree.
func (r *Registry) Build(def CriterionDefinition) (domain.EvaluationFunction, error) {
	kind, err := def.kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case "rule":
		rule, ok := r.rules[def.Rule]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRule, def.Rule)
		}
		f, err := rule.Factory(r.env, def.Params)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", def.Rule, err)
		}
		return f, nil
	case "and":
		children, err := r.buildAll(def.And)
		if err != nil {
			return nil, fmt.Errorf("and: %w", err)
		}
		return evaluation.NewAnd(children...)
	case "or":
		children, err := r.buildAll(def.Or)
		if err != nil {
			return nil, fmt.Errorf("or: %w", err)
		}
		return evaluation.NewOr(children...)
	case "not":
		child, err := r.Build(*def.Not)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return evaluation.NewNot(child)
	default:
		primary, err := r.Build(def.Fallback.Primary)
		if err != nil {
			return nil, fmt.Errorf("fallback primary: %w", err)
		}
		secondary, err := r.Build(def.Fallback.Secondary)
		if err != nil {
			return nil, fmt.Errorf("fallback secondary: %w", err)
		}
		return evaluation.NewFallback(primary, secondary)
	}
}

func (r *Registry) buildAll(defs []CriterionDefinition) ([]domain.EvaluationFunction, error) {
	functions := make([]domain.EvaluationFunction, 0, len(defs))
	for i, def := range defs {
		f, err := r.Build(def)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		functions = append(functions, f)
	}
	return functions, nil
}

// initializeRules registers the built-in rules.
func (r *Registry) initializeRules() error {
	builtins := []Rule{
		// Lab values
		{"HAS_LAB_VALUE_OF_AT_LEAST_X", "Most recent lab value is at least X in the given unit", labThreshold(HasSufficientLabValue)},
		{"HAS_LAB_VALUE_OF_AT_MOST_X", "Most recent lab value is at most X in the given unit", labThreshold(HasLimitedLabValue)},
		{"HAS_LAB_VALUE_OF_AT_MOST_X_ULN", "Most recent lab value is at most X times the upper limit of normal", labRelative(HasLimitedLabValueULN)},
		{"HAS_LAB_VALUE_OF_AT_LEAST_X_LLN", "Most recent lab value is at least X times the lower limit of normal", labRelative(HasSufficientLabValueLLN)},
		{"HAS_DIRECT_BILIRUBIN_PERCENTAGE_OF_TOTAL_OF_AT_MOST_X", "Direct bilirubin is at most X percent of total bilirubin", bilirubinPercentage},

		// Kidney function
		{"HAS_CREATININE_CLEARANCE_CKD_EPI_OF_AT_LEAST_X", "eGFR derived from creatinine with CKD-EPI is at least X", derivedClearance(labs.MethodCKDEPI)},
		{"HAS_CREATININE_CLEARANCE_MDRD_OF_AT_LEAST_X", "eGFR derived from creatinine with MDRD is at least X", derivedClearance(labs.MethodMDRD)},
		{"HAS_CREATININE_CLEARANCE_CG_OF_AT_LEAST_X", "Creatinine clearance by Cockcroft-Gault is at least X", derivedClearance(labs.MethodCockcroftGault)},
		{"HAS_EGFR_OF_AT_LEAST_X", "Measured eGFR, or CKD-EPI eGFR from creatinine, is at least X", egfr},

		// Tumor and history
		{"HAS_PRIMARY_TUMOR_BELONGING_TO_DOID_X", "Primary tumor is DOID X or a specialisation of it", doidRule(PrimaryTumorBelongsToDoid)},
		{"HAS_EXACT_PRIMARY_TUMOR_DOID_X", "Primary tumor is exactly DOID X", doidRule(HasExactPrimaryTumorDoid)},
		{"HAS_HISTORY_OF_CONDITION_WITH_DOID_X", "Prior condition is DOID X or a specialisation of it", doidRule(HasHadPriorConditionWithDoid)},

		// Placeholders
		{"NOT_EVALUATED", "Criterion intentionally not evaluated by the engine", constant(evaluation.NotEvaluated())},
		{"NOT_IMPLEMENTED", "Criterion without an implementation", constant(evaluation.NotImplemented())},
	}

	for _, rule := range builtins {
		if err := r.Register(rule.Name, rule.Description, rule.Factory); err != nil {
			return err
		}
	}
	return nil
}

func labThreshold(build func(Environment, domain.LabMeasurement, float64, domain.Unit) (domain.EvaluationFunction, error)) Factory {
	return func(env Environment, p RuleParameters) (domain.EvaluationFunction, error) {
		m, err := p.requireMeasurement()
		if err != nil {
			return nil, err
		}
		value, err := p.requireValue()
		if err != nil {
			return nil, err
		}
		return build(env, m, value, p.Unit)
	}
}

func labRelative(build func(Environment, domain.LabMeasurement, float64) (domain.EvaluationFunction, error)) Factory {
	return func(env Environment, p RuleParameters) (domain.EvaluationFunction, error) {
		m, err := p.requireMeasurement()
		if err != nil {
			return nil, err
		}
		factor, err := p.requireFactor()
		if err != nil {
			return nil, err
		}
		return build(env, m, factor)
	}
}

func bilirubinPercentage(env Environment, p RuleParameters) (domain.EvaluationFunction, error) {
	value, err := p.requireValue()
	if err != nil {
		return nil, err
	}
	return HasLimitedBilirubinPercentageOfTotal(env, value)
}

func derivedClearance(method labs.CreatinineMethod) Factory {
	return func(env Environment, p RuleParameters) (domain.EvaluationFunction, error) {
		value, err := p.requireValue()
		if err != nil {
			return nil, err
		}
		return HasSufficientDerivedCreatinineClearance(env, method, value)
	}
}

func egfr(env Environment, p RuleParameters) (domain.EvaluationFunction, error) {
	value, err := p.requireValue()
	if err != nil {
		return nil, err
	}
	return HasSufficientEGFR(env, value)
}

func doidRule(build func(Environment, string) (domain.EvaluationFunction, error)) Factory {
	return func(env Environment, p RuleParameters) (domain.EvaluationFunction, error) {
		return build(env, p.Doid)
	}
}

func constant(e domain.Evaluation) Factory {
	return func(Environment, RuleParameters) (domain.EvaluationFunction, error) {
		return evaluation.Constant(e), nil
	}
}
