// Package monitoring provides Prometheus metrics for the daemon: how many
// connections arrive, how many shells spawn, and how they exit.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exit classes for the shell_exits_total counter.
const (
	ExitClean  = "clean"
	ExitError  = "error"
	ExitSignal = "signal"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsTotal prometheus.Counter
	SessionsActive   prometheus.Gauge
	ShellsSpawned    prometheus.Counter
	SpawnFailures    prometheus.Counter
	ShellExits       *prometheus.CounterVec
}

// New creates a metrics collector backed by its own registry, so tests
// can build collectors independently without duplicate registration.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "shellbridge_connections_total",
			Help: "Total number of accepted SSH connections",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shellbridge_sessions_active",
			Help: "Number of currently live shell sessions",
		}),
		ShellsSpawned: factory.NewCounter(prometheus.CounterOpts{
			Name: "shellbridge_shells_spawned_total",
			Help: "Total number of shell processes spawned",
		}),
		SpawnFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "shellbridge_spawn_failures_total",
			Help: "Total number of shell spawn failures",
		}),
		ShellExits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shellbridge_shell_exits_total",
			Help: "Total number of shell exits by class",
		}, []string{"class"}),
	}
}

// Registry exposes the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveExit records a shell exit by its code: zero is clean, positive
// is an error status, negative means the process was signal-killed.
func (m *Metrics) ObserveExit(code int) {
	switch {
	case code == 0:
		m.ShellExits.WithLabelValues(ExitClean).Inc()
	case code > 0:
		m.ShellExits.WithLabelValues(ExitError).Inc()
	default:
		m.ShellExits.WithLabelValues(ExitSignal).Inc()
	}
}
