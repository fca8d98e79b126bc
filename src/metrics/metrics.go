// Package metrics exposes the Prometheus collectors of the scheduling stream.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session close reasons
const (
	ReasonCompleted    = "completed"
	ReasonInvalidInput = "invalid_input"
	ReasonDisconnected = "disconnected"
	ReasonCancelled    = "cancelled"
	ReasonError        = "error"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scm",
		Subsystem: "stream",
		Name:      "active_sessions",
		Help:      "Number of scheduling sessions currently streaming.",
	})

	FramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scm",
		Subsystem: "stream",
		Name:      "frames_sent_total",
		Help:      "Frames delivered to clients, by kind (snapshot, error).",
	}, []string{"kind"})

	SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scm",
		Subsystem: "stream",
		Name:      "sessions_closed_total",
		Help:      "Closed scheduling sessions by reason.",
	}, []string{"reason"})

	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scm",
		Subsystem: "aggregator",
		Name:      "duration_seconds",
		Help:      "Time spent assembling one daily snapshot.",
		Buckets:   prometheus.DefBuckets,
	})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scm",
		Subsystem: "aggregator",
		Name:      "provider_errors_total",
		Help:      "Failed provider reads by provider.",
	}, []string{"provider"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
