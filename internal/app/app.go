// Package app assembles the engine from configuration: ontology, rule
// registry, matcher, metrics and match store.
package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/internal/labs"
	"github.com/trial-eligibility-engine/internal/rules"
	"github.com/trial-eligibility-engine/internal/service"
	"github.com/trial-eligibility-engine/internal/store"
	"github.com/trial-eligibility-engine/pkg/doid"
)

// Engine holds the wired evaluation components.
type Engine struct {
	Config   *domain.Config
	Logger   *logrus.Logger
	Registry *rules.Registry
	Matcher  *service.TrialMatcher

	metrics *prometheus.Registry
}

// NewEngine loads the disease ontology named by cfg and wires the engine.
func NewEngine(cfg *domain.Config, logger *logrus.Logger, now time.Time) (*Engine, error) {
	model, err := doid.LoadFile(cfg.Ontology.DoidPath, cfg.Ontology.ClosureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load disease ontology: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"path":  cfg.Ontology.DoidPath,
		"terms": model.Size(),
	}).Info("Loaded disease ontology")

	return NewEngineWithModel(cfg, model, logger, now)
}

// NewEngineWithModel wires the engine around an already loaded ontology.
func NewEngineWithModel(cfg *domain.Config, model domain.DoidModel, logger *logrus.Logger, now time.Time) (*Engine, error) {
	referenceDate, err := cfg.Engine.ReferenceTime(now)
	if err != nil {
		return nil, fmt.Errorf("invalid reference date: %w", err)
	}

	registry, err := rules.NewRegistry(rules.Environment{
		Doid:                model,
		Converter:           labs.MustNewDefaultConverter(),
		Overrides:           labs.DefaultReferenceLimitOverrides(),
		ReferenceDate:       referenceDate,
		LabMaxAge:           cfg.Engine.LabMaxAge(),
		DefaultBodyWeightKg: cfg.Engine.DefaultBodyWeightKg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rule registry: %w", err)
	}

	e := &Engine{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
	}

	var metrics *service.Metrics
	if cfg.Metrics.Enabled {
		e.metrics = prometheus.NewRegistry()
		metrics = service.NewMetrics(e.metrics, cfg.Metrics.Namespace)
	}
	e.Matcher = service.NewTrialMatcher(registry, metrics, logger)

	logger.WithFields(logrus.Fields{
		"reference_date": referenceDate.Format(time.DateOnly),
		"rules":          len(registry.RuleNames()),
	}).Debug("Engine ready")
	return e, nil
}

// CompileTrialsFile loads and compiles the trial definitions in path.
func (e *Engine) CompileTrialsFile(path string) ([]*service.CompiledTrial, error) {
	defs, err := service.LoadTrialDefinitionsFile(path)
	if err != nil {
		return nil, err
	}
	return e.Matcher.CompileAll(defs)
}

// WriteMetrics writes the collected metrics to path in the Prometheus text
// format. It is a no-op when metrics are disabled.
func (e *Engine) WriteMetrics(path string) error {
	if e.metrics == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, e.metrics); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// OpenStore opens the configured match store.
func OpenStore(cfg domain.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return store.NewPostgresStoreFromURL(cfg.PostgresURL)
	default:
		return nil, domain.NewValidationError("storage.driver", "unsupported storage driver", cfg.Driver)
	}
}
