package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Approval workflow metrics
var (
	// WorkflowDecisions counts processed approval decisions by outcome
	WorkflowDecisions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_decisions_total",
			Help:      "Total number of approval decisions processed",
		},
		[]string{"decision"},
	)

	// WorkflowTransitions counts event status transitions
	WorkflowTransitions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Total number of event status transitions",
		},
		[]string{"from", "to"},
	)

	// WorkflowStalledChains counts stages that stalled with zero eligible approvers
	WorkflowStalledChains = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_stalled_chains_total",
			Help:      "Total number of approval chains stalled with no eligible approver",
		},
		[]string{"role"},
	)

	// NotificationsDispatched counts post-commit notification intents by severity
	NotificationsDispatched = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of notification intents dispatched after commit",
		},
		[]string{"severity"},
	)
)
