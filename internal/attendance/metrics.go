package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_decisions_total",
		Help: "Trust decisions by event kind and outcome",
	}, []string{"kind", "outcome"})

	riskLevel = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendance_risk_level",
		Help:    "Composite fraud risk of evaluated events",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.9, 1},
	}, []string{"kind"})

	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendance_evaluation_duration_seconds",
		Help:    "Time spent gathering inputs and deciding on an event",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)
