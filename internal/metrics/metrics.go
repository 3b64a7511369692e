package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memeiq_commands_total",
			Help: "Total bot commands handled",
		},
		[]string{"command"},
	)
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memeiq_analyses_total",
			Help: "Total analysis attempts by outcome",
		},
		[]string{"outcome"},
	)
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(AnalysesTotal)
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
}
