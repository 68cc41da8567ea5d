// Package ledger implements the netting engine: the single component
// allowed to mutate debt edges. Every write path in the module (expense
// application, expense rollback, direct and smart settlement) goes through
// this package, which is how the canonical-edge and conservation invariants
// are enforced structurally instead of being re-checked ad hoc by callers.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkale/splitledger/internal/metrics"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage"
)

// Delta is one signed debt change: debtor's obligation to creditor grows by
// Amount cents before netting. Rollback of a delta is the same delta with
// debtor and creditor swapped.
type Delta struct {
	DebtorID   string
	CreditorID string
	Amount     int64
}

// Inverse returns the delta that undoes d.
func (d Delta) Inverse() Delta {
	return Delta{DebtorID: d.CreditorID, CreditorID: d.DebtorID, Amount: d.Amount}
}

// Engine folds debt deltas into the stored ledger, keeping it canonical:
// for any pair of users in a group at most one directed edge exists.
type Engine struct {
	store storage.LedgerStore
}

// NewEngine creates an Engine backed by the given ledger store.
func NewEngine(store storage.LedgerStore) *Engine {
	return &Engine{store: store}
}

// ApplyDebt records that debtor owes creditor amount more cents, netting
// against any existing reverse edge. Runs in its own group-scoped
// transaction with a conservation check before commit.
func (e *Engine) ApplyDebt(ctx context.Context, groupID, debtorID, creditorID string, amount int64) error {
	return e.ApplyDeltas(ctx, groupID, []Delta{{DebtorID: debtorID, CreditorID: creditorID, Amount: amount}})
}

// ApplyDeltas applies a batch of deltas atomically: either every delta is
// folded in and conservation holds, or nothing is committed. Netting is
// commutative for this purpose, so delta order does not affect the final
// ledger state.
func (e *Engine) ApplyDeltas(ctx context.Context, groupID string, deltas []Delta) error {
	for _, d := range deltas {
		if err := validateDelta(groupID, d); err != nil {
			metrics.OperationsRejected.WithLabelValues(metrics.ReasonValidation).Inc()
			return err
		}
	}

	err := e.store.WithGroupTx(ctx, groupID, func(tx storage.LedgerTx) error {
		for _, d := range deltas {
			if err := applyDebtTx(ctx, tx, groupID, d); err != nil {
				return err
			}
		}
		return checkConservation(ctx, tx, groupID)
	})
	if err != nil {
		return err
	}

	metrics.DebtsApplied.Add(float64(len(deltas)))
	return nil
}

// NetPositions derives each user's net position in a group by a single scan
// of its edges: incoming amounts count positive, outgoing negative. Users
// with no edges are absent from the result.
func (e *Engine) NetPositions(ctx context.Context, groupID string) (map[string]int64, error) {
	edges, err := e.store.ListEdges(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return netFromEdges(edges), nil
}

// SettleDirect reduces the tracked payer->recipient edge by amount. The
// amount must not exceed the current edge; larger payments are rejected,
// not clamped.
func (e *Engine) SettleDirect(ctx context.Context, groupID, payerID, recipientID string, amount int64) error {
	if err := validateDelta(groupID, Delta{DebtorID: payerID, CreditorID: recipientID, Amount: amount}); err != nil {
		metrics.OperationsRejected.WithLabelValues(metrics.ReasonValidation).Inc()
		return err
	}

	return e.store.WithGroupTx(ctx, groupID, func(tx storage.LedgerTx) error {
		current, err := tx.GetEdge(ctx, groupID, payerID, recipientID)
		if err != nil {
			return fmt.Errorf("failed to read edge: %w", err)
		}
		if amount > current {
			metrics.OperationsRejected.WithLabelValues(metrics.ReasonInsufficient).Inc()
			return fmt.Errorf("%w: settlement of %d exceeds tracked debt of %d",
				models.ErrInsufficientBalance, amount, current)
		}
		// Paying back is the inverse of incurring the debt.
		if err := applyDebtTx(ctx, tx, groupID, Delta{DebtorID: recipientID, CreditorID: payerID, Amount: amount}); err != nil {
			return err
		}
		return checkConservation(ctx, tx, groupID)
	})
}

// VerifyConservation re-derives the group's net positions and fails if they
// do not sum to zero. Used by the background verifier; mutations run the
// same check transactionally before commit.
func (e *Engine) VerifyConservation(ctx context.Context, groupID string) error {
	edges, err := e.store.ListEdges(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list edges: %w", err)
	}
	return conservationFromEdges(groupID, edges)
}

// applyDebtTx is the netting primitive from which every ledger mutation is
// built. It folds one delta into the stored edges:
//
//  1. If the reverse edge exists, cancel against it; only the surplus (in
//     either direction) survives.
//  2. Otherwise grow (or create) the forward edge.
//
// Edges that reach zero are deleted, never stored.
func applyDebtTx(ctx context.Context, tx storage.LedgerTx, groupID string, d Delta) error {
	reverse, err := tx.GetEdge(ctx, groupID, d.CreditorID, d.DebtorID)
	if err != nil {
		return fmt.Errorf("failed to read reverse edge: %w", err)
	}

	switch {
	case reverse > d.Amount:
		return tx.SetEdge(ctx, groupID, d.CreditorID, d.DebtorID, reverse-d.Amount)
	case reverse == d.Amount && reverse > 0:
		return tx.DeleteEdge(ctx, groupID, d.CreditorID, d.DebtorID)
	case reverse > 0:
		// The canonical-edge invariant guarantees the forward edge was
		// absent while the reverse existed.
		if err := tx.DeleteEdge(ctx, groupID, d.CreditorID, d.DebtorID); err != nil {
			return err
		}
		return tx.SetEdge(ctx, groupID, d.DebtorID, d.CreditorID, d.Amount-reverse)
	default:
		forward, err := tx.GetEdge(ctx, groupID, d.DebtorID, d.CreditorID)
		if err != nil {
			return fmt.Errorf("failed to read edge: %w", err)
		}
		return tx.SetEdge(ctx, groupID, d.DebtorID, d.CreditorID, forward+d.Amount)
	}
}

func validateDelta(groupID string, d Delta) error {
	if groupID == "" || d.DebtorID == "" || d.CreditorID == "" {
		return fmt.Errorf("%w: group, debtor and creditor ids are required", models.ErrValidation)
	}
	if d.DebtorID == d.CreditorID {
		return fmt.Errorf("%w: debtor and creditor must differ", models.ErrValidation)
	}
	if d.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", models.ErrValidation, d.Amount)
	}
	return nil
}

// checkConservation runs inside the mutating transaction so a violation
// aborts the commit instead of persisting a corrupt ledger.
func checkConservation(ctx context.Context, tx storage.LedgerTx, groupID string) error {
	edges, err := tx.ListEdges(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list edges: %w", err)
	}
	return conservationFromEdges(groupID, edges)
}

// conservationFromEdges checks the stored invariants the zero-sum property
// rests on: every edge positive, at most one direction per pair, and the
// derived net positions summing to zero. Any failure means a bug in this
// package or store corruption, so it is surfaced loudly and never corrected
// silently.
func conservationFromEdges(groupID string, edges []models.Edge) error {
	pairs := make(map[[2]string]bool, len(edges))
	for _, edge := range edges {
		if edge.Amount <= 0 {
			return conservationViolation(groupID, fmt.Sprintf(
				"edge %s->%s has non-positive amount %d", edge.DebtorID, edge.CreditorID, edge.Amount))
		}
		key := [2]string{edge.DebtorID, edge.CreditorID}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if pairs[key] {
			return conservationViolation(groupID, fmt.Sprintf(
				"both debt directions stored for pair %s/%s", key[0], key[1]))
		}
		pairs[key] = true
	}

	var sum int64
	for _, amount := range netFromEdges(edges) {
		sum += amount
	}
	if sum != 0 {
		return conservationViolation(groupID, fmt.Sprintf("net positions sum to %d cents", sum))
	}
	return nil
}

func conservationViolation(groupID, detail string) error {
	metrics.ConservationViolations.Inc()
	slog.Error("ledger invariant violated", "group_id", groupID, "detail", detail)
	return fmt.Errorf("%w: group %s: %s", models.ErrConservation, groupID, detail)
}

func netFromEdges(edges []models.Edge) map[string]int64 {
	net := make(map[string]int64, len(edges))
	for _, edge := range edges {
		net[edge.DebtorID] -= edge.Amount
		net[edge.CreditorID] += edge.Amount
	}
	return net
}
