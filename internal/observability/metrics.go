package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	gateVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishql_gate_verdicts_total",
			Help: "Safety gate decisions by verdict and rejection reason.",
		},
		[]string{"verdict", "reason"},
	)

	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishql_translations_total",
			Help: "Natural-language-to-SQL translation attempts by status.",
		},
		[]string{"status"},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishql_queries_total",
			Help: "Executed statements by status.",
		},
		[]string{"status"},
	)

	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dishql_query_duration_seconds",
			Help:    "Statement execution latency.",
			Buckets: prometheus.DefBuckets,
		},
	)

	embeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dishql_embedding_requests_total",
			Help: "Embedding API calls by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		gateVerdictsTotal,
		translationsTotal,
		queriesTotal,
		queryDurationSeconds,
		embeddingRequestsTotal,
	)
}

// ObserveGateVerdict records a gate decision. Only the verdict and reason
// code are recorded, never statement text.
func ObserveGateVerdict(allowed bool, reason string) {
	verdict := "allow"
	if !allowed {
		verdict = "reject"
	}
	gateVerdictsTotal.WithLabelValues(verdict, reason).Inc()
}

func ObserveTranslation(status string) {
	translationsTotal.WithLabelValues(status).Inc()
}

func ObserveQuery(status string, duration time.Duration) {
	queriesTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		queryDurationSeconds.Observe(duration.Seconds())
	}
}

func ObserveEmbeddingRequest(status string) {
	embeddingRequestsTotal.WithLabelValues(status).Inc()
}
