package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diffusiond",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Duration of pipeline calls in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"model", "status"},
	)

	generationLockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "diffusiond",
			Subsystem: "generation",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the generation lock",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pipelineLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diffusiond",
			Subsystem: "pipeline",
			Name:      "loads_total",
			Help:      "Pipeline loads by model and outcome",
		},
		[]string{"model", "status"},
	)
)

func init() {
	prometheus.MustRegister(generationDuration, generationLockWait, pipelineLoadsTotal)
}
