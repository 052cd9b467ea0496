package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apicheck_http_attempts_total",
		Help: "Total HTTP dispatch attempts, including retries.",
	})
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apicheck_http_retries_total",
		Help: "Attempts beyond the first within a single exchange.",
	})
	exhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apicheck_http_exhausted_total",
		Help: "Exchanges that spent their whole attempt budget on transport failures.",
	})
)
