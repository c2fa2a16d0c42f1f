package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trial-eligibility-engine/internal/config"
	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/logging"
)

// --- Global Command Variables ---
var (
	configFile  string
	patientPath string
	trialsPath  string
	saveResults bool
	metricsPath string
	concurrency int
	exportPath  string
	importPath  string
	historyID   string
	limit       int

	cfg    *domain.Config
	logger *logrus.Logger

	rootCmd = &cobra.Command{
		Use:   "eligibility-engine",
		Short: "Evaluate patient records against clinical trial eligibility criteria",
		Long: `eligibility-engine evaluates patient records against the inclusion
criteria of clinical trials and their cohorts, and reports potential
eligibility with the rationale of every criterion.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	// --- Evaluation ---
	evaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "Match one patient file against trial definitions and print the full rationale",
		RunE:  runEvaluate, // Defined in cmd_evaluate.go
	}
	batchCmd = &cobra.Command{
		Use:   "batch",
		Short: "Match a directory of patient files against trial definitions in parallel",
		RunE:  runBatch, // Defined in cmd_evaluate.go
	}
	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "List the available eligibility rules",
		RunE:  runRules, // Defined in cmd_evaluate.go
	}

	// --- Stored Results ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show stored match results for a patient",
		RunE:  runHistory, // Defined in cmd_store.go
	}
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export stored match results as JSON",
		RunE:  runExport,
	}
	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Import match results from a JSON export",
		RunE:  runImport,
	}

	// --- Database ---
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrate(true),
	}
	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE:  runMigrate(false),
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (default: ./config.yaml)")

	evaluateCmd.Flags().StringVar(&patientPath, "patient", "", "patient record JSON file")
	_ = evaluateCmd.MarkFlagRequired("patient")
	batchCmd.Flags().StringVar(&patientPath, "patients", "", "directory of patient record JSON files")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel evaluations (default: engine.max_concurrency)")
	_ = batchCmd.MarkFlagRequired("patients")

	for _, c := range []*cobra.Command{evaluateCmd, batchCmd} {
		c.Flags().StringVar(&trialsPath, "trials", "", "trial definitions YAML file")
		c.Flags().BoolVar(&saveResults, "save", false, "persist matches to the configured store")
		c.Flags().StringVar(&metricsPath, "metrics-file", "", "write Prometheus metrics to this file after the run")
		_ = c.MarkFlagRequired("trials")
	}

	historyCmd.Flags().StringVar(&historyID, "patient", "", "patient ID")
	historyCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	_ = historyCmd.MarkFlagRequired("patient")

	exportCmd.Flags().StringVar(&exportPath, "file", "", "output file (default: stdout)")
	importCmd.Flags().StringVar(&importPath, "file", "", "export file to import")
	_ = importCmd.MarkFlagRequired("file")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(evaluateCmd, batchCmd, rulesCmd, historyCmd, exportCmd, importCmd, migrateCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg = manager.GetConfig()
	logger = logging.New(cfg.Logging, cmd.ErrOrStderr())
	logger.WithFields(logrus.Fields{
		"config_file": manager.ConfigFileUsed(),
		"started_at":  time.Now().UTC().Format(time.RFC3339),
	}).Debug("Configuration loaded")
	return nil
}
