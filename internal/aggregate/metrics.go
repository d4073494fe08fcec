package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	skippedItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_aggregate_skipped_items_total",
		Help: "Multi-valued items skipped during aggregation",
	}, []string{"kind"})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_aggregate_load_seconds",
		Help:    "Duration of source table loads",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})
)

// Skipped item kinds.
const (
	skipMalformedSDG   = "malformed_sdg"
	skipUnknownStatus  = "unknown_status"
	skipDuplicateRow   = "duplicate_research"
	skipNamelessAuthor = "nameless_author"
	skipOrphanActivity = "orphan_engagement"
)
