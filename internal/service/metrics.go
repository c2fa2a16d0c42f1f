package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trial-eligibility-engine/internal/domain"
)

// Metrics records evaluation outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	evaluations   *prometheus.CounterVec
	matches       *prometheus.CounterVec
	preconditions prometheus.Counter
	duration      prometheus.Histogram
}

// NewMetrics registers the engine metrics on reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Criterion evaluations by result",
		}, []string{"result"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_matches_total",
			Help:      "Patient/trial matches by potential eligibility",
		}, []string{"eligible"}),
		preconditions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "precondition_violations_total",
			Help:      "Matches aborted by a rule precondition violation",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time to evaluate one patient against one trial",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

func (m *Metrics) observeMatch(match *domain.TrialMatch, elapsed time.Duration) {
	if m == nil {
		return
	}
	for result, n := range match.ResultCounts() {
		m.evaluations.WithLabelValues(string(result)).Add(float64(n))
	}
	eligible := "false"
	if match.IsPotentiallyEligible {
		eligible = "true"
	}
	m.matches.WithLabelValues(eligible).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observePrecondition() {
	if m == nil {
		return
	}
	m.preconditions.Inc()
}
