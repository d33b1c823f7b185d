package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connections = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "dashboard",
	Subsystem: "ws",
	Name:      "connections",
})
