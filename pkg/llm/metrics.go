package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmQueryTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ai",
		Subsystem: "llm",
		Name:      "request_seconds",
	})

	llmErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ai",
		Subsystem: "llm",
		Name:      "errors_total",
	}, []string{"err_code"})
)
