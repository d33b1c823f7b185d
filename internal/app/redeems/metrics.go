package redeems

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "dispatcher",
		Name:      "redemptions_total",
	}, []string{"result"})

	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "dispatcher",
		Name:      "verdicts_total",
	}, []string{"status"})

	reconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "reconciler",
		Name:      "runs_total",
	})

	reconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "reconciler",
		Name:      "errors_total",
	})

	coinGamePrice = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "engine",
		Subsystem: "coin_game",
		Name:      "current_price",
	})
)
