// Package metrics exposes gateway instrumentation on the default
// prometheus registry. The host decides whether and where to serve it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// DecisionsTotal counts recorded decisions by disposition.
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_decisions_total",
		Help: "Decisions recorded, labeled by disposition",
	}, []string{"disposition"})

	// DecisionsDropped counts decisions below the suggestion threshold.
	DecisionsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_decisions_dropped_total",
		Help: "Decisions dropped before policy evaluation",
	})

	// ApprovalsTotal counts approval record transitions by terminal state.
	ApprovalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_approvals_total",
		Help: "Approval record resolutions, labeled by terminal state",
	}, []string{"state"})

	// ApprovalBacklog tracks records waiting behind the pending slot.
	ApprovalBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_approval_backlog",
		Help: "Approval records waiting behind the single pending slot",
	})

	// LateResolutions counts resolutions that lost a race against a
	// timeout or the kill switch.
	LateResolutions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_late_resolutions_total",
		Help: "Resolutions logged as rejected-late, never executed",
	})

	// HaltTrips counts kill switch activations.
	HaltTrips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_halt_trips_total",
		Help: "Kill switch activations",
	})

	// ExecutionsTotal counts decisions forwarded to the execution layer.
	ExecutionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_executions_total",
		Help: "Decisions forwarded to the execution layer",
	})
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal, DecisionsDropped, ApprovalsTotal,
		ApprovalBacklog, LateResolutions, HaltTrips, ExecutionsTotal,
	)
}
