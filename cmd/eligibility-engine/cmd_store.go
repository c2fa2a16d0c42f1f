package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trial-eligibility-engine/internal/app"
	"github.com/trial-eligibility-engine/internal/database"
)

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := app.OpenStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.ListByPatient(cmd.Context(), historyID, limit, 0)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := app.OpenStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer s.Close()

	var out io.Writer = cmd.OutOrStdout()
	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return s.ExportJSON(cmd.Context(), out)
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := app.OpenStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(importPath)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	imported, skipped, err := s.ImportJSON(cmd.Context(), f)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Import completed")
	return nil
}

func runMigrate(up bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		runner, err := database.NewMigrationRunnerFromConfig(cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer runner.Close()

		if up {
			return runner.Up(cmd.Context())
		}
		return runner.Down(cmd.Context())
	}
}
