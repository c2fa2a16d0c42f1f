package service

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trial-eligibility-engine/internal/rules"
)

// TrialDefinition describes a trial's eligibility criteria as written in a
// trial definition file.
type TrialDefinition struct {
	ID       string             `yaml:"id"`
	Title    string             `yaml:"title"`
	Criteria []CriterionEntry   `yaml:"criteria"`
	Cohorts  []CohortDefinition `yaml:"cohorts"`
}

// CohortDefinition is a cohort with its own criteria on top of the trial's.
type CohortDefinition struct {
	ID       string           `yaml:"id"`
	Closed   bool             `yaml:"closed"`
	Criteria []CriterionEntry `yaml:"criteria"`
}

// CriterionEntry couples a protocol reference with its criterion tree.
type CriterionEntry struct {
	ID         string                    `yaml:"id"`
	Text       string                    `yaml:"text"`
	Definition rules.CriterionDefinition `yaml:",inline"`
}

type trialFile struct {
	Trials []TrialDefinition `yaml:"trials"`
}

// LoadTrialDefinitions parses a YAML document with a top-level "trials" list.
func LoadTrialDefinitions(r io.Reader) ([]TrialDefinition, error) {
	var file trialFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode trial definitions: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Trials))
	for _, trial := range file.Trials {
		if err := trial.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[trial.ID]; dup {
			return nil, fmt.Errorf("duplicate trial id %q", trial.ID)
		}
		seen[trial.ID] = struct{}{}
	}
	return file.Trials, nil
}

// LoadTrialDefinitionsFile opens path and calls LoadTrialDefinitions.
func LoadTrialDefinitionsFile(path string) ([]TrialDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trial definitions: %w", err)
	}
	defer f.Close()
	return LoadTrialDefinitions(f)
}

// Validate checks identifiers. Criterion trees are validated when compiled.
func (t TrialDefinition) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trial without id")
	}
	if err := validateEntries(t.ID, t.Criteria); err != nil {
		return err
	}
	cohorts := make(map[string]struct{}, len(t.Cohorts))
	for _, c := range t.Cohorts {
		if c.ID == "" {
			return fmt.Errorf("trial %s: cohort without id", t.ID)
		}
		if _, dup := cohorts[c.ID]; dup {
			return fmt.Errorf("trial %s: duplicate cohort id %q", t.ID, c.ID)
		}
		cohorts[c.ID] = struct{}{}
		if err := validateEntries(t.ID+"/"+c.ID, c.Criteria); err != nil {
			return err
		}
	}
	return nil
}

func validateEntries(scope string, entries []CriterionEntry) error {
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%s: criterion without id", scope)
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("%s: duplicate criterion id %q", scope, e.ID)
		}
		ids[e.ID] = struct{}{}
	}
	return nil
}
