// Package metrics provides Prometheus metrics for the signal pipeline.
package metrics

import (
	"time"

	"quietly-stated/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quietly"

var (
	// SignalsExtracted counts signals built from documents, before bias filtering.
	SignalsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_extracted_total",
		Help:      "Total number of signals extracted from documents",
	})

	SignalsBiased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_biased_total",
		Help:      "Total number of signals dropped by bias rules",
	})

	SignalsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_saved_total",
		Help:      "Total number of signals persisted",
	})

	SignalsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_duplicate_total",
		Help:      "Total number of signals skipped because they were already stored",
	})

	// DocumentsFailed counts documents whose processing failed, by document kind.
	DocumentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_failed_total",
		Help:      "Total number of documents that failed processing",
	}, []string{"kind"})

	InsightsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "insights_saved_total",
		Help:      "Total number of insights persisted",
	})

	// FeedItemsIngested counts stored feed items by kind (article, alert, trend).
	FeedItemsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_items_ingested_total",
		Help:      "Total number of feed items stored by ingestion",
	}, []string{"kind"})

	// JobDuration measures batch job duration.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of pipeline jobs in seconds",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
	}, []string{"job"})
)

// RecordEnrich adds the funnel counts of one enrichment run.
func RecordEnrich(result *domain.EnrichResult) {
	if result == nil {
		return
	}
	SignalsExtracted.Add(float64(result.Total))
	SignalsBiased.Add(float64(result.Biased))
	SignalsSaved.Add(float64(result.Saved))
	SignalsDuplicate.Add(float64(result.Duplicates))
}

// RecordDocumentFailure records a failed document of the given kind.
func RecordDocumentFailure(kind domain.SourceType) {
	DocumentsFailed.WithLabelValues(string(kind)).Inc()
}

// RecordInsightsSaved records persisted insights.
func RecordInsightsSaved(n int) {
	InsightsSaved.Add(float64(n))
}

// RecordIngested records stored feed items of the given kind.
func RecordIngested(kind domain.SourceType, n int) {
	if n <= 0 {
		return
	}
	FeedItemsIngested.WithLabelValues(string(kind)).Add(float64(n))
}

// ObserveJob records the duration of a job that started at start.
func ObserveJob(job string, start time.Time) {
	JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}
