package prometheus

import (
	"time"

	"github.com/turtacn/patentdb/internal/application/ingestion"
)

// Default Buckets
var (
	DefaultIngestDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultMergeDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultMergeSizeBuckets      = []float64{1, 2, 3, 5, 10, 25, 50, 100, 500, 1000}
)

// AppMetrics holds every patentdb metric.  It satisfies both the ingestion
// and the resolution recorder interfaces.
type AppMetrics struct {
	// Ingestion
	PatentIngestTotal    CounterVec
	PatentIngestDuration HistogramVec
	StagingExportRows    CounterVec

	// Resolution
	MergesTotal       CounterVec
	MergeDuration     HistogramVec
	MergeMembers      HistogramVec
	MergeRetiredTotal CounterVec
}

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.PatentIngestTotal = collector.RegisterCounter("patent_ingest_total", "Patent documents processed", "outcome")
	m.PatentIngestDuration = collector.RegisterHistogram("patent_ingest_duration_seconds", "Per-document ingestion duration", DefaultIngestDurationBuckets, "outcome")
	m.StagingExportRows = collector.RegisterCounter("staging_export_rows_total", "Staged rows exported to object storage", "table")

	m.MergesTotal = collector.RegisterCounter("entity_merges_total", "Entity merges attempted", "kind", "status")
	m.MergeDuration = collector.RegisterHistogram("entity_merge_duration_seconds", "Entity merge duration", DefaultMergeDurationBuckets, "kind")
	m.MergeMembers = collector.RegisterHistogram("entity_merge_members", "Raw records linked by a merge", DefaultMergeSizeBuckets, "kind")
	m.MergeRetiredTotal = collector.RegisterCounter("entity_merge_retired_total", "Canonical records retired by merges", "kind")

	return m
}

// ObserveIngest records one document outcome.
func (m *AppMetrics) ObserveIngest(outcome ingestion.Outcome, elapsed time.Duration) {
	m.PatentIngestTotal.WithLabelValues(outcome.String()).Inc()
	m.PatentIngestDuration.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
}

// ObserveExport records rows drained from a staging table.
func (m *AppMetrics) ObserveExport(table string, rows int) {
	m.StagingExportRows.WithLabelValues(table).Add(float64(rows))
}

// ObserveMerge records one merge attempt.
func (m *AppMetrics) ObserveMerge(kind string, members, retired int, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.MergesTotal.WithLabelValues(kind, status).Inc()
	m.MergeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.MergeMembers.WithLabelValues(kind).Observe(float64(members))
	m.MergeRetiredTotal.WithLabelValues(kind).Add(float64(retired))
}

//Personal.AI order the ending
