package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hookExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lucky_hook_executions_total",
			Help: "Total hook trigger requests by outcome",
		},
		[]string{"hook", "result"},
	)

	hookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lucky_hook_execution_duration_seconds",
			Help:    "Hook execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"hook"},
	)

	hookInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lucky_hook_execution_in_flight",
		Help: "1 while a hook execution is active",
	})

	hookQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lucky_hook_queue_depth",
		Help: "Trigger requests waiting on the execution lock",
	})
)
