// Package metrics exposes choreboss counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	completions    prometheus.Counter
	authzDecisions *prometheus.CounterVec
	rosterChanges  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		completions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "choreboss",
			Name:      "chore_completions_total",
			Help:      "Total chores marked complete",
		}),
		authzDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choreboss",
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions by action and outcome",
		}, []string{"action", "decision"}),
		rosterChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "choreboss",
			Name:      "roster_changes_total",
			Help:      "Roster mutations by operation",
		}, []string{"op"}),
	}
}

func (m *Metrics) ChoreCompleted() {
	if m == nil {
		return
	}
	m.completions.Inc()
}

func (m *Metrics) AuthzDecision(action string, allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.authzDecisions.WithLabelValues(action, decision).Inc()
}

// RosterChanged counts a roster mutation such as "add", "delete" or "reorder".
func (m *Metrics) RosterChanged(op string) {
	if m == nil {
		return
	}
	m.rosterChanges.WithLabelValues(op).Inc()
}

// ObserveDroppedBroadcasts exports a running count of websocket deliveries
// skipped because a client's buffer was full. Call it once per registry.
func (m *Metrics) ObserveDroppedBroadcasts(count func() uint64) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewCounterFunc(prometheus.CounterOpts{
		Namespace: "choreboss",
		Name:      "ws_dropped_total",
		Help:      "Websocket messages dropped for slow clients",
	}, func() float64 { return float64(count()) })
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
