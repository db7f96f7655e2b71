package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	chunkRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codedown_chunk_runs_total",
			Help: "Total number of chunk runs.",
		},
		[]string{"status", "language"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codedown_chunk_run_duration_seconds",
			Help:    "Chunk run duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(chunkRunsTotal)
	prometheus.MustRegister(runDuration)
}
