package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wdsearch",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	TranslationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "translation_requests_total",
			Help:      "Total number of translation requests",
		},
		[]string{"status"},
	)

	RerankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "rerank_requests_total",
			Help:      "Total number of rerank requests",
		},
		[]string{"status"},
	)

	PartitionSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "partition_search_total",
			Help:      "Vector partition searches by partition and outcome",
		},
		[]string{"partition", "status"},
	)

	FeedbackWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wdsearch",
			Name:      "feedback_writes_total",
			Help:      "Feedback append attempts by outcome",
		},
		[]string{"status"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers the pipeline metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(TranslationRequestsTotal)
	prometheus.MustRegister(RerankRequestsTotal)
	prometheus.MustRegister(PartitionSearchTotal)
	prometheus.MustRegister(FeedbackWritesTotal)
	retrievalMetricsRegistered = true
}
