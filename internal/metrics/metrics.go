// Package metrics exposes prometheus collectors fed by the event bus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/typegraph/internal/eventbus"
	events "github.com/hanpama/typegraph/internal/events"
)

const namespace = "typegraph"

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration prometheus.Histogram
	operations   *prometheus.CounterVec
	opErrors     prometheus.Counter
	opDuration   prometheus.Histogram
	freezes      prometheus.Counter
	freezeTime   prometheus.Histogram
	types        prometheus.Gauge
	edges        prometheus.Gauge
	violations   prometheus.Gauge
	reloads      *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by status code.",
		}, []string{"code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "GraphQL operations by operation type.",
		}, []string{"type"}),
		opErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "errors_total",
			Help: "GraphQL errors returned in responses.",
		}),
		opDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operation_duration_seconds",
			Help: "GraphQL operation latency.", Buckets: prometheus.DefBuckets,
		}),
		freezes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graph", Name: "freezes_total",
			Help: "Type graphs resolved.",
		}),
		freezeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graph", Name: "freeze_duration_seconds",
			Help: "Time spent resolving a type graph.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		types: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "types",
			Help: "Registered types of the last resolved graph.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "edges",
			Help: "Implementation edges of the last resolved graph.",
		}),
		violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "violations",
			Help: "Violations found in the last resolved graph.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "schema", Name: "reloads_total",
			Help: "Schema reloads by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.operations, m.opErrors, m.opDuration,
		m.freezes, m.freezeTime, m.types, m.edges, m.violations,
		m.reloads,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Subscribe feeds the collectors from the global event bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
			m.httpDuration.Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			opType := e.OperationType
			if opType == "" {
				opType = "unknown"
			}
			m.operations.WithLabelValues(opType).Inc()
			m.opErrors.Add(float64(len(e.Errors)))
			m.opDuration.Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphFrozen) {
			m.freezes.Inc()
			m.freezeTime.Observe(e.Duration.Seconds())
			m.types.Set(float64(e.Types))
			m.edges.Set(float64(e.Edges))
			m.violations.Set(float64(e.Violations))
		}),
		eventbus.Subscribe(func(_ context.Context, e events.SchemaReloaded) {
			result := "success"
			if e.Err != nil {
				result = "failure"
			}
			m.reloads.WithLabelValues(result).Inc()
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
