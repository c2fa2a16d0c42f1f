package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-engine/internal/domain"
)

func TestToEngineError(t *testing.T) {
	storageErr := domain.NewEngineError(domain.ErrCodeStorage, "failed to save match", "disk full", "run-1")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"engine error passes through", fmt.Errorf("save: %w", storageErr), domain.ErrCodeStorage},
		{"validation", domain.NewValidationError("patient_id", "required", nil), domain.ErrCodeInvalidInput},
		{"precondition", fmt.Errorf("match: %w", &domain.PreconditionError{Component: "bilirubin", Message: "wrong lab"}), domain.ErrCodePrecondition},
		{"unknown rule", fmt.Errorf("criterion I-01: %w", domain.ErrUnknownRule), domain.ErrCodeInvalidDefinition},
		{"incompatible unit", fmt.Errorf("rule: %w", domain.ErrIncompatibleUnit), domain.ErrCodeInvalidDefinition},
		{"cancelled", context.Canceled, domain.ErrCodeInternal},
		{"other", errors.New("boom"), domain.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toEngineError(tt.err)
			assert.Equal(t, tt.want, got.Code)
		})
	}

	assert.Same(t, storageErr, toEngineError(storageErr))
}

func TestReportError_UsesConfiguredLogger(t *testing.T) {
	configured, hook := test.NewNullLogger()
	saved := logger
	t.Cleanup(func() { logger = saved })

	logger = nil
	assert.Same(t, logrus.StandardLogger(), exitLogger())

	logger = configured
	require.Same(t, configured, exitLogger())

	reportError(exitLogger(), fmt.Errorf("criterion I-01: %w", domain.ErrUnknownRule))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "command failed", entry.Message)
	assert.Equal(t, domain.ErrCodeInvalidDefinition, entry.Data["code"])
	assert.Contains(t, entry.Data["details"], "unknown rule")
}
