package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menugraph",
			Name:      "pipeline_requests_total",
			Help:      "Total questions processed, by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "menugraph",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end question processing duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route"},
	)

	GraphQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menugraph",
			Name:      "graph_queries_total",
			Help:      "Total Cypher queries executed",
		},
		[]string{"status"},
	)

	GraphQueryRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "menugraph",
			Name:      "graph_query_retries_total",
			Help:      "Total Cypher query retry attempts after transient failures",
		},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menugraph",
			Name:      "llm_requests_total",
			Help:      "Total language model requests, by operation and status",
		},
		[]string{"op", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "menugraph",
			Name:      "llm_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	SimilarityCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "menugraph",
			Name:      "similarity_candidates",
			Help:      "Candidates returned per hybrid similarity search",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)

	AggregateRowsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "menugraph",
			Name:      "aggregate_rows_skipped_total",
			Help:      "Malformed rows skipped during result aggregation",
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "menugraph",
			Name:      "embedding_requests_total",
			Help:      "Total embedding requests",
		},
		[]string{"model", "status"},
	)
)

// RegisterPipelineMetrics registers all pipeline metrics explicitly
// (no init()).
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		PipelineRequestsTotal,
		PipelineDuration,
		GraphQueriesTotal,
		GraphQueryRetriesTotal,
		LLMRequestsTotal,
		LLMRequestDuration,
		SimilarityCandidates,
		AggregateRowsSkipped,
		EmbeddingRequestsTotal,
	)
}
