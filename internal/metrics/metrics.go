package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BearBump/BagTrace/internal/models"
)

// Metrics holds all prometheus metrics. A nil *Metrics is a valid no-op.
type Metrics struct {
	ProviderAttempts     *prometheus.CounterVec
	ProviderLatency      *prometheus.HistogramVec
	Verifications        *prometheus.CounterVec
	MatchCandidates      prometheus.Counter
	MatchPersistFailures prometheus.Counter
	EmbeddingFailures    prometheus.Counter
	BackfillProcessed    prometheus.Counter
}

// New registers metrics on reg; nil reg means the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ProviderAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Flight route provider attempts by outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_attempt_seconds",
			Help:      "Time spent in a single provider attempt",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Travel verifications by resulting status",
		}, []string{"status"}),
		MatchCandidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_candidates_total",
			Help:      "Match candidates produced by the match engine",
		}),
		MatchPersistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_persist_failures_total",
			Help:      "Failed attempts to persist match records",
		}),
		EmbeddingFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Failed embedding computations",
		}),
		BackfillProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_processed_total",
			Help:      "Luggage records handled by the embedding backfill sweeper",
		}),
	}
}

func (m *Metrics) ObserveAttempt(a models.ProviderAttempt) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(a.Provider, a.Outcome).Inc()
	if a.Outcome != models.AttemptCached && a.Outcome != models.AttemptThrottled {
		m.ProviderLatency.WithLabelValues(a.Provider).Observe((time.Duration(a.ElapsedMs) * time.Millisecond).Seconds())
	}
}

func (m *Metrics) VerificationScored(status string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(status).Inc()
}

func (m *Metrics) CandidatesFound(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MatchCandidates.Add(float64(n))
}

func (m *Metrics) MatchPersistFailed() {
	if m == nil {
		return
	}
	m.MatchPersistFailures.Inc()
}

func (m *Metrics) EmbeddingFailed() {
	if m == nil {
		return
	}
	m.EmbeddingFailures.Inc()
}

func (m *Metrics) BackfillDone(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BackfillProcessed.Add(float64(n))
}
