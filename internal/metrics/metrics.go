// Package metrics provides Prometheus telemetry for redogs stores.
// A Collector implements engine.Metrics and owns a private registry, so
// several collectors can coexist in one process (and in tests).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/redogs/internal/engine"
)

// DefaultNamespace is used when NewCollector is given an empty namespace.
const DefaultNamespace = "redogs"

// Collector records store metrics.
type Collector struct {
	registry *prometheus.Registry

	dispatched *prometheus.CounterVec
	emitted    prometheus.Counter
	suppressed prometheus.Counter
	faults     *prometheus.CounterVec
	queueDepth prometheus.Gauge
}

var _ engine.Metrics = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.dispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "Total number of actions queued, by action type",
		},
		[]string{"type"},
	)

	c.emitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_emissions_total",
		Help:      "Total number of states published on the state stream",
	})

	c.suppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_suppressed_total",
		Help:      "Total number of reducer results dropped because nothing changed",
	})

	c.faults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_faults_total",
			Help:      "Total number of pipeline faults, by pipeline and code",
		},
		[]string{"pipeline", "code"},
	)

	c.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Number of actions waiting to be processed",
	})

	c.registry.MustRegister(
		c.dispatched,
		c.emitted,
		c.suppressed,
		c.faults,
		c.queueDepth,
	)

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ActionDispatched implements engine.Metrics.
func (c *Collector) ActionDispatched(actionType string) {
	c.dispatched.WithLabelValues(actionType).Inc()
}

// StateEmitted implements engine.Metrics.
func (c *Collector) StateEmitted() {
	c.emitted.Inc()
}

// StateSuppressed implements engine.Metrics.
func (c *Collector) StateSuppressed() {
	c.suppressed.Inc()
}

// PipelineFault implements engine.Metrics.
func (c *Collector) PipelineFault(p engine.Pipeline, code engine.ErrorCode) {
	c.faults.WithLabelValues(string(p), string(code)).Inc()
}

// QueueDepth implements engine.Metrics.
func (c *Collector) QueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}
