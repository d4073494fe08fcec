package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rebuild outcomes.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

var (
	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_rebuilds_total",
		Help: "Snapshot rebuilds by outcome",
	}, []string{"status"})

	rebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "research_rebuild_duration_seconds",
		Help:    "Duration of snapshot rebuilds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	snapshotRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_snapshot_rows",
		Help: "Rows in the current snapshot",
	})

	snapshotGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_snapshot_generation",
		Help: "Generation of the current snapshot",
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_snapshot_last_success_timestamp_seconds",
		Help: "Unix time of the last successful rebuild",
	})
)
