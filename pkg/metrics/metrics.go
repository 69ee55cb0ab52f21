package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PrescriptionsCreated    prometheus.Counter
	PrescriptionTransitions *prometheus.CounterVec
	UnitsDispensed          prometheus.Counter
	AdherenceRecorded       *prometheus.CounterVec
	NumberCollisions        prometheus.Counter

	CatalogCacheResults *prometheus.CounterVec

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers every metric on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	namespace := strings.ReplaceAll(serviceName, "-", "_")
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PrescriptionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prescriptions",
			Name:      "created_total",
			Help:      "Total prescriptions created.",
		}),

		PrescriptionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prescriptions",
			Name:      "transitions_total",
			Help:      "Prescription status transitions by target status.",
		}, []string{"status"}),

		UnitsDispensed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prescriptions",
			Name:      "units_dispensed_total",
			Help:      "Total medication units dispensed.",
		}),

		AdherenceRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adherence",
			Name:      "records_total",
			Help:      "Adherence records by reported status.",
		}, []string{"status"}),

		NumberCollisions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prescriptions",
			Name:      "number_collisions_total",
			Help:      "Prescription number collisions that forced a retry.",
		}),

		CatalogCacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_results_total",
			Help:      "Medication catalog cache lookups by result (hit, miss, error).",
		}, []string{"result"}),

		AuditEntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
