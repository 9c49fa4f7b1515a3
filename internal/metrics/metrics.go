// Package metrics holds the Prometheus instruments shared by the prediction
// engine. They register on the default registry and are served by the HTTP
// server under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OracleCalls counts external tool invocations by tool and outcome
	// (ok, failed, timeout, error).
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spliced_oracle_invocations_total",
		Help: "External tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	OracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spliced_oracle_duration_seconds",
		Help:    "External tool wall time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"tool"})

	// FactCacheLookups counts fact cache requests by result
	// (hit, generated, failed, shared).
	FactCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spliced_fact_cache_lookups_total",
		Help: "Fact cache lookups by result",
	}, []string{"result"})

	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spliced_predictions_total",
		Help: "Prediction records by predictor and verdict",
	}, []string{"predictor", "verdict"})

	PredictorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spliced_predictor_errors_total",
		Help: "Predictor runs aborted, by predictor",
	}, []string{"predictor"})
)

// Verdict is the label value for a prediction outcome.
func Verdict(ok bool) string {
	if ok {
		return "compatible"
	}
	return "incompatible"
}
