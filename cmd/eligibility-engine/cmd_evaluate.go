package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trial-eligibility-engine/internal/app"
	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/service"
	"github.com/trial-eligibility-engine/internal/store"
)

type evaluationReport struct {
	RunID    string               `json:"run_id"`
	Matches  []*domain.TrialMatch `json:"matches"`
	Failures []failureReport      `json:"failures,omitempty"`
}

type failureReport struct {
	PatientID string `json:"patient_id"`
	TrialID   string `json:"trial_id"`
	Error     string `json:"error"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	info, err := os.Stat(patientPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return domain.NewValidationError("patient", "expected a file, use batch for directories", patientPath)
	}

	result, err := runMatch(cmd, 1)
	if err != nil {
		return err
	}

	report := evaluationReport{RunID: result.RunID.String(), Matches: result.Matches}
	for _, f := range result.Failures {
		report.Failures = append(report.Failures, failureReport{PatientID: f.PatientID, TrialID: f.TrialID, Error: f.Err.Error()})
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func runBatch(cmd *cobra.Command, args []string) error {
	workers := concurrency
	if workers <= 0 {
		workers = cfg.Engine.MaxConcurrency
	}

	result, err := runMatch(cmd, workers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATIENT\tTRIAL\tELIGIBLE\tCOHORTS")
	for _, match := range result.Matches {
		if match == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", match.PatientID, match.TrialID,
			match.IsPotentiallyEligible, strings.Join(match.EligibleCohorts(), ","))
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "%s\t%s\tERROR\t%s\n", f.PatientID, f.TrialID, f.Err)
	}
	return w.Flush()
}

// runMatch evaluates the patients at patientPath against trialsPath and
// handles --save and --metrics-file.
func runMatch(cmd *cobra.Command, workers int) (*service.BatchResult, error) {
	engine, err := app.NewEngine(cfg, logger, time.Now())
	if err != nil {
		return nil, err
	}
	trials, err := engine.CompileTrialsFile(trialsPath)
	if err != nil {
		return nil, err
	}
	records, err := service.LoadPatientPath(patientPath)
	if err != nil {
		return nil, err
	}

	result, err := engine.Matcher.MatchBatch(cmd.Context(), records, trials, workers)
	if err != nil {
		return nil, err
	}

	if saveResults {
		if err := saveMatches(cmd, result); err != nil {
			return nil, err
		}
	}
	if err := engine.WriteMetrics(metricsPath); err != nil {
		return nil, err
	}
	return result, nil
}

func saveMatches(cmd *cobra.Command, result *service.BatchResult) error {
	s, err := app.OpenStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer s.Close()

	saved := 0
	for _, match := range result.Matches {
		if match == nil {
			continue
		}
		if err := s.Save(cmd.Context(), store.NewMatchRecord(result.RunID, match)); err != nil {
			return domain.NewEngineError(domain.ErrCodeStorage, "failed to save match", err.Error(), result.RunID.String())
		}
		saved++
	}
	logger.WithFields(logrus.Fields{
		"run_id": result.RunID.String(),
		"driver": cfg.Storage.Driver,
		"saved":  saved,
	}).Info("Saved match results")
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	engine, err := app.NewEngine(cfg, logger, time.Now())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range engine.Registry.RuleNames() {
		description, _ := engine.Registry.Describe(name)
		fmt.Fprintf(out, "%-55s %s\n", name, description)
	}
	return nil
}
