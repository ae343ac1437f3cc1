// Package metrics defines all custom Prometheus metrics for the session
// gateway. It is the single source of truth for metric names, labels, and
// help strings; promauto registers everything with the default registry at
// init time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session_gateway"

// AuthOperationsTotal counts session-mutating operations by outcome.
// Labels:
//   - operation: "login", "register", "google_exchange", "logout"
//   - result: "success" or "error"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of session-mutating operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// BootstrapTotal counts initial session lookups by how they settled.
// Label:
//   - outcome: "authenticated", "anonymous", or "error" (degraded to anonymous)
var BootstrapTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_total",
		Help:      "Total number of initial session lookups, by outcome.",
	},
	[]string{"outcome"},
)

// ProviderLoadFailures counts identity provider loads that latched the
// bridge unavailable.
var ProviderLoadFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_load_failures_total",
		Help:      "Total number of identity provider load failures.",
	},
)

// GuardDecisionsTotal counts route guard evaluations.
// Label:
//   - outcome: "wait", "allow", or "redirect"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome.",
	},
	[]string{"outcome"},
)

// SessionCacheTotal counts session-lookup cache consultations.
// Label:
//   - result: "hit" or "miss"
var SessionCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_cache_total",
		Help:      "Total number of session-lookup cache consultations, by result.",
	},
	[]string{"result"},
)

// ObserveAuthOp records one auth operation outcome.
func ObserveAuthOp(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	AuthOperationsTotal.WithLabelValues(operation, result).Inc()
}
