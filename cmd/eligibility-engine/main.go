package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-engine/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(exitLogger(), err)
		os.Exit(1)
	}
}

// exitLogger is the configured logger, or the standard logger when the
// command failed before configuration was loaded.
func exitLogger() *logrus.Logger {
	if logger != nil {
		return logger
	}
	return logrus.StandardLogger()
}

// reportError logs err as a structured EngineError.
func reportError(log logrus.FieldLogger, err error) {
	engineErr := toEngineError(err)
	log.WithFields(logrus.Fields{
		"code":    engineErr.Code,
		"details": engineErr.Details,
	}).Error(engineErr.Message)
}

// toEngineError classifies err into the structured error reported on exit.
func toEngineError(err error) *domain.EngineError {
	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) {
		return engineErr
	}

	var (
		validationErr   *domain.ValidationError
		preconditionErr *domain.PreconditionError
	)
	code := domain.ErrCodeInternal
	switch {
	case errors.As(err, &preconditionErr):
		code = domain.ErrCodePrecondition
	case errors.As(err, &validationErr):
		code = domain.ErrCodeInvalidInput
	case errors.Is(err, domain.ErrUnknownRule), errors.Is(err, domain.ErrDuplicateRule),
		errors.Is(err, domain.ErrEmptyComposite), errors.Is(err, domain.ErrNilFunction),
		errors.Is(err, domain.ErrIncompatibleUnit), errors.Is(err, domain.ErrMissingParameter),
		errors.Is(err, domain.ErrInvalidDefinition):
		code = domain.ErrCodeInvalidDefinition
	}
	return domain.NewEngineError(code, "command failed", err.Error(), "")
}
