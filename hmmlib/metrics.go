package hmmlib

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emIterations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cathmm_em_iterations_total",
		Help: "Number of completed EM iterations.",
	})

	starvedStates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cathmm_starved_states_total",
		Help: "Number of states that received no posterior mass in an EM iteration.",
	})

	loglikeDecreases = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cathmm_loglike_decreases_total",
		Help: "Number of EM iterations that decreased the log-likelihood.",
	})

	fitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cathmm_fit_duration_seconds",
		Help:    "Duration of a single EM fit.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"status"})
)
