// Package metrics defines the Prometheus instrumentation for the ledger
// core. Collectors are registered on the default registry and exposed by
// the server binary on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DebtsApplied counts netting-engine mutations that committed.
	DebtsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "debts_applied_total",
		Help:      "Number of debt deltas applied to the ledger.",
	})

	// ExpensesCreated counts expenses accepted and folded into the ledger.
	ExpensesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "expenses_created_total",
		Help:      "Number of expenses created.",
	})

	// ExpensesDeleted counts expenses rolled back out of the ledger.
	ExpensesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "expenses_deleted_total",
		Help:      "Number of expenses deleted.",
	})

	// SettlementsRecorded counts settlements by kind (direct or smart).
	SettlementsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "settlements_recorded_total",
		Help:      "Number of settlements recorded, by kind.",
	}, []string{"kind"})

	// OperationsRejected counts mutations refused before touching the
	// ledger, by rejection reason.
	OperationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "operations_rejected_total",
		Help:      "Number of rejected ledger operations, by reason.",
	}, []string{"reason"})

	// ConservationViolations counts detected conservation failures. Any
	// nonzero value here indicates a bug or store corruption and should
	// alert.
	ConservationViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitledger",
		Name:      "conservation_violations_total",
		Help:      "Number of detected conservation invariant violations.",
	})
)

// Reason labels for OperationsRejected.
const (
	ReasonValidation   = "validation"
	ReasonInsufficient = "insufficient_balance"
	ReasonPrecondition = "precondition"
)
