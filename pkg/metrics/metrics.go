// Package metrics holds the prometheus collectors emitted by the ETL.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PlaceholderStops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etl_placeholder_stops_total",
		Help: "Stop references resolved to a placeholder because they are missing from the reference dataset",
	})

	MissingStopRefs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etl_missing_stop_refs_total",
		Help: "Distinct missing stop references seen per file",
	})

	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_violations_total",
		Help: "Validation violations recorded, by stage",
	}, []string{"stage"})

	StageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_stage_retries_total",
		Help: "Stage retries triggered by retriable errors",
	}, []string{"stage"})

	FilesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etl_files_processed_total",
		Help: "Files run through the pipeline, by final task status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etl_stage_duration_seconds",
		Help:    "Wall time per pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"stage"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
