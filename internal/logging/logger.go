// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-engine/internal/domain"
)

// Format names accepted in LoggingConfig.Format.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to out (stderr when nil). Unknown levels fall
// back to info.
func New(config domain.LoggingConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == FormatText {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	return logger
}

// WithRun tags every entry with the batch run it belongs to, so the lines of
// one evaluation run can be correlated.
func WithRun(logger logrus.FieldLogger, runID uuid.UUID) *logrus.Entry {
	return logger.WithField("run_id", runID.String())
}
