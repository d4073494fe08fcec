package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadinessFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_readiness_failures_total",
		Help: "Failed readiness checks by reason",
	}, []string{"reason"})

	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "research_build_info",
		Help: "Build information, always 1",
	}, []string{"version", "source_driver"})
)
