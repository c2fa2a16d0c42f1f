package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-engine/internal/domain"
	"github.com/trial-eligibility-engine/pkg/doid"
)

const ontologyJSON = `{"graphs":[{
  "nodes":[
    {"id":"http://purl.obolibrary.org/obo/DOID_162","lbl":"cancer","type":"CLASS"},
    {"id":"http://purl.obolibrary.org/obo/DOID_1324","lbl":"lung cancer","type":"CLASS"}
  ],
  "edges":[
    {"sub":"http://purl.obolibrary.org/obo/DOID_1324","pred":"is_a","obj":"http://purl.obolibrary.org/obo/DOID_162"}
  ]
}]}`

const trialsYAML = `
trials:
  - id: LUNG-01
    criteria:
      - id: I-01
        rule: HAS_PRIMARY_TUMOR_BELONGING_TO_DOID_X
        params:
          doid: "162"
`

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	dir := t.TempDir()
	doidPath := filepath.Join(dir, "doid.json")
	require.NoError(t, os.WriteFile(doidPath, []byte(ontologyJSON), 0o644))

	return &domain.Config{
		Engine: domain.EngineConfig{
			ReferenceDate:       "2026-03-01",
			LabMaxAgeDays:       90,
			MaxConcurrency:      2,
			DefaultBodyWeightKg: 70,
		},
		Ontology: domain.OntologyConfig{DoidPath: doidPath, ClosureCacheSize: 16},
		Storage:  domain.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "matches.db")},
		Metrics:  domain.MetricsConfig{Enabled: true, Namespace: "eligibility"},
	}
}

func TestNewEngine_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	logger, hook := test.NewNullLogger()

	engine, err := NewEngine(cfg, logger, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Loaded disease ontology", hook.Entries[0].Message)

	trialsPath := filepath.Join(t.TempDir(), "trials.yaml")
	require.NoError(t, os.WriteFile(trialsPath, []byte(trialsYAML), 0o644))
	trials, err := engine.CompileTrialsFile(trialsPath)
	require.NoError(t, err)
	require.Len(t, trials, 1)

	record := &domain.PatientRecord{
		PatientID: "P-001",
		Tumor:     domain.TumorDetails{PrimaryTumorDoids: []string{"1324"}},
	}
	match, err := engine.Matcher.Match(record, trials[0])
	require.NoError(t, err)
	assert.True(t, match.IsPotentiallyEligible)

	metricsPath := filepath.Join(t.TempDir(), "eligibility.prom")
	require.NoError(t, engine.WriteMetrics(metricsPath))
	content, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "eligibility_trial_matches_total")
}

func TestNewEngine_MissingOntology(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ontology.DoidPath = filepath.Join(t.TempDir(), "absent.json")
	logger, _ := test.NewNullLogger()

	_, err := NewEngine(cfg, logger, time.Now())

	assert.ErrorContains(t, err, "failed to load disease ontology")
}

func TestNewEngineWithModel_BadReferenceDate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.ReferenceDate = "next tuesday"
	model, err := doid.NewModel(nil, nil, 0)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	_, err = NewEngineWithModel(cfg, model, logger, time.Now())

	assert.ErrorContains(t, err, "invalid reference date")
}

func TestEngine_WriteMetrics_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	model, err := doid.NewModel(nil, nil, 0)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	engine, err := NewEngineWithModel(cfg, model, logger, time.Now())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, engine.WriteMetrics(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig(t)

	s, err := OpenStore(cfg.Storage)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenStore(domain.StorageConfig{Driver: "mysql"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
