package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers the retrieval pipeline and the indexer. All methods
// are nil-safe so usecases can run without a registry in tests.
type PipelineMetrics struct {
	registry *prometheus.Registry

	retrieveTotal     *prometheus.CounterVec
	retrieveDuration  *prometheus.HistogramVec
	rerankTotal       *prometheus.CounterVec
	rewriteCacheTotal *prometheus.CounterVec
	indexedChunks     *prometheus.CounterVec
	indexDuration     *prometheus.HistogramVec
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	retrieveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gitguard",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Retrieval calls by collection and outcome.",
		},
		[]string{"collection", "outcome"},
	)
	retrieveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gitguard",
			Subsystem: "retrieval",
			Name:      "request_duration_seconds",
			Help:      "Retrieval call duration in seconds by collection.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection"},
	)
	rerankTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gitguard",
			Subsystem: "rerank",
			Name:      "requests_total",
			Help:      "Rerank calls by outcome (reranked, fallback, identity).",
		},
		[]string{"outcome"},
	)
	rewriteCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gitguard",
			Subsystem: "rewrite",
			Name:      "cache_total",
			Help:      "Query rewrite cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)
	indexedChunks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gitguard",
			Subsystem: "indexer",
			Name:      "chunks_total",
			Help:      "Chunks added to the document store by collection.",
		},
		[]string{"collection"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gitguard",
			Subsystem: "indexer",
			Name:      "partition_duration_seconds",
			Help:      "Partition indexing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"collection", "status"},
	)

	registry.MustRegister(
		retrieveTotal, retrieveDuration, rerankTotal,
		rewriteCacheTotal, indexedChunks, indexDuration,
	)

	return &PipelineMetrics{
		registry:          registry,
		retrieveTotal:     retrieveTotal,
		retrieveDuration:  retrieveDuration,
		rerankTotal:       rerankTotal,
		rewriteCacheTotal: rewriteCacheTotal,
		indexedChunks:     indexedChunks,
		indexDuration:     indexDuration,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObserveRetrieve(collection, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.retrieveTotal.WithLabelValues(collection, outcome).Inc()
	m.retrieveDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

func (m *PipelineMetrics) IncRerank(outcome string) {
	if m == nil {
		return
	}
	m.rerankTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) IncRewriteCache(result string) {
	if m == nil {
		return
	}
	m.rewriteCacheTotal.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) AddIndexedChunks(collection string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.indexedChunks.WithLabelValues(collection).Add(float64(n))
}

func (m *PipelineMetrics) ObserveIndexPartition(collection string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.indexDuration.WithLabelValues(collection, status).Observe(duration.Seconds())
}
