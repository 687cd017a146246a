package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	promptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "gateway",
		Name:      "prompts_total",
		Help:      "Inbound prompts by assigned tier.",
	}, []string{"tier"})

	wrapperLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sentinel",
		Subsystem: "gateway",
		Name:      "wrapper_latency_seconds",
		Help:      "Latency of wrapper service calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	wrapperFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "gateway",
		Name:      "wrapper_failures_total",
		Help:      "Wrapper service calls that returned an error or timed out.",
	})
)

func init() {
	prometheus.MustRegister(promptsTotal, wrapperLatency, wrapperFailures)
}
