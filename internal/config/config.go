package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/trial-eligibility-engine/internal/domain"
)

var _ domain.ConfigManager = (*Manager)(nil)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile
// searches the default locations; a missing default file is not an error.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/trial-eligibility-engine/")
	}

	// ELIGIBILITY_STORAGE_DRIVER overrides storage.driver
	v.SetEnvPrefix("ELIGIBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.reference_date", "")
	v.SetDefault("engine.lab_max_age_days", 90)
	v.SetDefault("engine.max_concurrency", 8)
	v.SetDefault("engine.default_body_weight_kg", 70.0)

	v.SetDefault("ontology.doid_path", "data/doid.json")
	v.SetDefault("ontology.closure_cache_size", 4096)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/matches.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.migrations_path", "migrations")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "eligibility")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetEngineConfig returns evaluation configuration
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// GetStorageConfig returns storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if _, err := config.Engine.ReferenceTime(time.Now()); err != nil {
		return fmt.Errorf("invalid reference date %q: %w", config.Engine.ReferenceDate, err)
	}
	if config.Engine.LabMaxAgeDays <= 0 {
		return fmt.Errorf("lab max age must be positive: %d", config.Engine.LabMaxAgeDays)
	}
	if config.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive: %d", config.Engine.MaxConcurrency)
	}
	if config.Engine.DefaultBodyWeightKg <= 0 {
		return fmt.Errorf("default body weight must be positive: %g", config.Engine.DefaultBodyWeightKg)
	}

	if config.Ontology.DoidPath == "" {
		return fmt.Errorf("ontology path is required")
	}
	if config.Ontology.ClosureCacheSize <= 0 {
		return fmt.Errorf("closure cache size must be positive: %d", config.Ontology.ClosureCacheSize)
	}

	switch config.Storage.Driver {
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
