// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Logins counts login attempts by outcome (ok, invalid_key, error).
var Logins = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "salon_logins_total",
	Help: "Login attempts by outcome.",
}, []string{"result"})

// TransactionsCreated counts filed transactions by their initial status.
var TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "salon_transactions_created_total",
	Help: "Transactions created, by initial approval status.",
}, []string{"status"})

// ApprovalDecisions counts owner approve/reject decisions.
var ApprovalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "salon_approval_decisions_total",
	Help: "Approval decisions taken by the owner.",
}, []string{"action"})

// SessionsExpired counts sessions discarded by the lazy expiry check.
var SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "salon_sessions_expired_total",
	Help: "Sessions found expired and cleared on read.",
})
