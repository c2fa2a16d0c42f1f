package domain

// EvaluationFunction is the capability implemented by every leaf rule and
// every composite. Implementations are stateless and reentrant: one instance
// is built per criterion and shared across all patients and goroutines.
type EvaluationFunction interface {
	Evaluate(record *PatientRecord) Evaluation
}

// DoidModel answers disease ontology queries. Implementations are read-only
// after construction.
type DoidModel interface {
	// AncestorsOf returns the reflexive-transitive parent closure of doid.
	AncestorsOf(doid string) []string
	// Subsumes reports whether target is doid itself or one of its ancestors.
	Subsumes(doid, target string) bool
	// TermFor returns the ontology term of doid.
	TermFor(doid string) (string, bool)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetEngineConfig() *EngineConfig
	GetStorageConfig() *StorageConfig
	Reload() error
	Validate() error
}
