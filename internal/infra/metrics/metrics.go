// Package metrics provides Prometheus metrics for the market-intel pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts provider fetch attempts by adapter and outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "fetch_total",
			Help:      "Total number of provider fetch attempts",
		},
		[]string{"adapter", "status"},
	)

	// FetchArticles counts articles returned by each adapter.
	FetchArticles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "fetch_articles_total",
			Help:      "Total number of articles returned by provider fetches",
		},
		[]string{"adapter"},
	)

	// DedupDropped counts articles dropped by the aggregator seen-set.
	DedupDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "dedup_dropped_total",
			Help:      "Total number of duplicate articles dropped before admission",
		},
	)

	// IngestLatency measures time from event receipt to index commit.
	IngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "marketintel",
			Name:      "ingest_latency_seconds",
			Help:      "Per-article latency from changefeed receipt to index commit",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// CommitBatchSize observes committed micro-batch sizes in articles.
	CommitBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "marketintel",
			Name:      "commit_batch_size",
			Help:      "Distribution of committed micro-batch sizes",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)

	// CommitTotal counts index commits by outcome.
	CommitTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "commit_total",
			Help:      "Total number of dual-index commit attempts",
		},
		[]string{"status"},
	)

	// IndexedChunks tracks the current chunk count in the retrieval store.
	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marketintel",
			Name:      "indexed_chunks",
			Help:      "Current number of chunks visible to queries",
		},
	)

	// VerdictTotal counts verdict assemblies by driver (llm or heuristic).
	VerdictTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "verdict_total",
			Help:      "Total number of assembled verdicts",
		},
		[]string{"driver"},
	)

	// BroadcastTotal counts frames offered to sinks by frame kind.
	BroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "broadcast_total",
			Help:      "Total number of frames offered to subscriber sinks",
		},
		[]string{"kind"},
	)

	// FramesDropped counts frames dropped by sink backpressure.
	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped at sink high-watermark",
		},
	)

	// Subscribers tracks currently registered sinks.
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "marketintel",
			Name:      "subscribers",
			Help:      "Current number of registered subscriber sinks",
		},
	)

	// OutboxPublishTotal counts changefeed outbox publishes by outcome.
	OutboxPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "outbox_publish_total",
			Help:      "Total number of outbox publish operations",
		},
		[]string{"status"},
	)

	// ArchiveWriteTotal counts article archive writes by outcome.
	ArchiveWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "archive_write_total",
			Help:      "Total number of archive write operations",
		},
		[]string{"status"},
	)
)

// RecordFetch records one provider fetch attempt and its article yield.
func RecordFetch(adapter, status string, articles int) {
	FetchTotal.WithLabelValues(adapter, status).Inc()
	if articles > 0 {
		FetchArticles.WithLabelValues(adapter).Add(float64(articles))
	}
}

// RecordCommit records a dual-index commit attempt.
func RecordCommit(status string, batchSize int) {
	CommitTotal.WithLabelValues(status).Inc()
	if batchSize > 0 {
		CommitBatchSize.Observe(float64(batchSize))
	}
}
