// Package metrics exposes prometheus counters for panel mutations and logins.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutation outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvpanel_mutations_total",
			Help: "Total number of record mutations by operation, table and outcome.",
		},
		[]string{"operation", "table", "outcome"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvpanel_logins_total",
			Help: "Total number of admin login attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// ObserveMutation counts one mutation attempt. Unknown tables are folded
// into a single label value to keep cardinality bounded.
func ObserveMutation(operation, table, outcome string) {
	if table == "" {
		table = "unknown"
	}
	mutationsTotal.WithLabelValues(operation, table, outcome).Inc()
}

// ObserveLogin counts one login attempt.
func ObserveLogin(outcome string) {
	loginsTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
