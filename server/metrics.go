package server

import "github.com/prometheus/client_golang/prometheus"

const (
	resultOK       = "ok"
	resultCached   = "cached"
	resultInvalid  = "invalid"
	resultConflict = "conflict"
	resultError    = "error"
)

type metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonstruct",
			Name:      "runs_total",
			Help:      "Inference runs by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jsonstruct",
			Name:      "run_seconds",
			Help:      "Time spent decoding, inferring and rendering one request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"dialect"}),
	}
	reg.MustRegister(m.runs, m.duration)
	return m
}
