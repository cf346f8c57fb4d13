package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the HTTP API.
type Metrics struct {
	registry *prometheus.Registry

	UnitsCollected    prometheus.Counter
	UnitsAllocated    prometheus.Counter
	RequestsResponded *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, so tests can build several.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		UnitsCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "raktkadi_units_collected_total",
			Help: "Total number of blood units registered",
		}),
		UnitsAllocated: factory.NewCounter(prometheus.CounterOpts{
			Name: "raktkadi_units_allocated_total",
			Help: "Total number of blood units reserved for approved requests",
		}),
		RequestsResponded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "raktkadi_requests_responded_total",
			Help: "Blood request responses by resulting status",
		}, []string{"status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "raktkadi_http_request_duration_seconds",
			Help:    "Duration of API calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementUnitsCollected() {
	m.UnitsCollected.Inc()
}

func (m *Metrics) AddUnitsAllocated(n int) {
	m.UnitsAllocated.Add(float64(n))
}

func (m *Metrics) IncrementRequestsResponded(status string) {
	m.RequestsResponded.WithLabelValues(status).Inc()
}

// ObserveOperation records the duration of an API operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
