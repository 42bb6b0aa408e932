package geofence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_work_area_refresh_total",
		Help: "Work area reloads by outcome",
	}, []string{"outcome"})

	loadedAreas = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geofence_active_work_areas",
		Help: "Number of active work areas in the current snapshot",
	})
)
