package session

import "github.com/prometheus/client_golang/prometheus"

var activeSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "codedown_active_sessions",
		Help: "Number of live interactive interpreter sessions.",
	},
)

func init() {
	prometheus.MustRegister(activeSessions)
}
