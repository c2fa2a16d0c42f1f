package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Ontology OntologyConfig `mapstructure:"ontology"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// EngineConfig holds evaluation parameters fixed for the lifetime of the process.
type EngineConfig struct {
	// ReferenceDate anchors lab recency and patient age. Empty means "now" at load time.
	ReferenceDate       string  `mapstructure:"reference_date"`
	LabMaxAgeDays       int     `mapstructure:"lab_max_age_days"`
	MaxConcurrency      int     `mapstructure:"max_concurrency"`
	DefaultBodyWeightKg float64 `mapstructure:"default_body_weight_kg"`
}

// OntologyConfig locates the disease ontology.
type OntologyConfig struct {
	DoidPath         string `mapstructure:"doid_path"`
	ClosureCacheSize int    `mapstructure:"closure_cache_size"`
}

// StorageConfig represents match result persistence configuration
type StorageConfig struct {
	Driver         string `mapstructure:"driver"` // "sqlite", "postgres"
	SQLitePath     string `mapstructure:"sqlite_path"`
	PostgresURL    string `mapstructure:"postgres_url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ReferenceTime resolves ReferenceDate, falling back to now.
func (c EngineConfig) ReferenceTime(now time.Time) (time.Time, error) {
	if c.ReferenceDate == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, c.ReferenceDate); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, c.ReferenceDate)
}

// LabMaxAge is the recency window for lab values.
func (c EngineConfig) LabMaxAge() time.Duration {
	return time.Duration(c.LabMaxAgeDays) * 24 * time.Hour
}
