package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"sort"

	"github.com/mkale/splitledger/internal/metrics"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage"
)

// SettleSmart clears amount cents of the payer's overall debt against the
// recipient's overall credit without requiring a direct edge between them.
// Any direct payer->recipient edge is consumed first, exactly like a direct
// settlement; only the excess is redistributed proportionally, first across
// the payer's other outgoing edges and then across the recipient's other
// incoming edges. Both parties' net positions move by exactly amount. When
// the graph is a simple chain payer->X->recipient with matching amounts the
// redistribution degenerates to exact chain cancellation.
//
// Preconditions, checked inside the group transaction so concurrent
// mutations cannot invalidate them between check and apply:
//   - the payer is a net debtor and amount <= |net(payer)|
//   - the recipient is a net creditor and amount <= net(recipient)
//
// Violations reject the settlement without mutating anything.
func (e *Engine) SettleSmart(ctx context.Context, groupID, payerID, recipientID string, amount int64) error {
	if err := validateDelta(groupID, Delta{DebtorID: payerID, CreditorID: recipientID, Amount: amount}); err != nil {
		metrics.OperationsRejected.WithLabelValues(metrics.ReasonValidation).Inc()
		return err
	}

	return e.store.WithGroupTx(ctx, groupID, func(tx storage.LedgerTx) error {
		edges, err := tx.ListEdges(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to list edges: %w", err)
		}
		net := netFromEdges(edges)

		if net[payerID] >= 0 {
			metrics.OperationsRejected.WithLabelValues(metrics.ReasonPrecondition).Inc()
			return fmt.Errorf("%w: %s does not owe money in group %s", models.ErrPrecondition, payerID, groupID)
		}
		if net[recipientID] <= 0 {
			metrics.OperationsRejected.WithLabelValues(metrics.ReasonPrecondition).Inc()
			return fmt.Errorf("%w: %s is not owed money in group %s", models.ErrPrecondition, recipientID, groupID)
		}
		if amount > -net[payerID] {
			metrics.OperationsRejected.WithLabelValues(metrics.ReasonInsufficient).Inc()
			return fmt.Errorf("%w: settlement of %d exceeds payer debt of %d",
				models.ErrInsufficientBalance, amount, -net[payerID])
		}
		if amount > net[recipientID] {
			metrics.OperationsRejected.WithLabelValues(metrics.ReasonInsufficient).Inc()
			return fmt.Errorf("%w: settlement of %d exceeds recipient credit of %d",
				models.ErrInsufficientBalance, amount, net[recipientID])
		}

		// A shared payer->recipient edge is consumed first, as an ordinary
		// direct reduction. Folding it into the proportional passes instead
		// would reduce it on both sides and move the payer's net by more
		// than the settled amount.
		var direct int64
		for _, edge := range edges {
			if edge.DebtorID == payerID && edge.CreditorID == recipientID {
				direct = edge.Amount
				break
			}
		}
		directReduction := min(direct, amount)
		if directReduction > 0 {
			if left := direct - directReduction; left == 0 {
				if err := tx.DeleteEdge(ctx, groupID, payerID, recipientID); err != nil {
					return err
				}
			} else if err := tx.SetEdge(ctx, groupID, payerID, recipientID, left); err != nil {
				return err
			}
		}

		// The two filtered sets both exclude the shared edge and are
		// therefore disjoint, so they can work from the one listing. The
		// preconditions bound the excess by each set's total.
		if excess := amount - directReduction; excess > 0 {
			outgoing := filterEdges(edges, func(edge models.Edge) bool {
				return edge.DebtorID == payerID && edge.CreditorID != recipientID
			})
			if err := reduceProportionally(ctx, tx, outgoing, excess, func(edge models.Edge) string { return edge.CreditorID }); err != nil {
				return err
			}
			incoming := filterEdges(edges, func(edge models.Edge) bool {
				return edge.CreditorID == recipientID && edge.DebtorID != payerID
			})
			if err := reduceProportionally(ctx, tx, incoming, excess, func(edge models.Edge) string { return edge.DebtorID }); err != nil {
				return err
			}
		}

		if err := checkConservation(ctx, tx, groupID); err != nil {
			return err
		}

		slog.Info("smart settlement applied",
			"group_id", groupID,
			"payer", payerID,
			"recipient", recipientID,
			"amount_cents", amount,
		)
		return nil
	})
}

// reduceProportionally shrinks the given edges so their total drops by
// exactly amount. Each edge loses floor(edge * amount / total); the cents
// lost to flooring are then taken one at a time from edges that still have
// room, in counterparty order, so the reduction is deterministic and exact.
// Edges reduced to zero are deleted. amount must not exceed the edges'
// total.
func reduceProportionally(ctx context.Context, tx storage.LedgerTx, edges []models.Edge, amount int64, counterparty func(models.Edge) string) error {
	sort.Slice(edges, func(i, j int) bool {
		return counterparty(edges[i]) < counterparty(edges[j])
	})

	var total int64
	for _, edge := range edges {
		total += edge.Amount
	}

	reductions := make([]int64, len(edges))
	var allocated int64
	for i, edge := range edges {
		reductions[i] = mulDiv(edge.Amount, amount, total)
		allocated += reductions[i]
	}
	for remainder := amount - allocated; remainder > 0; {
		for i := range reductions {
			if remainder == 0 {
				break
			}
			if reductions[i] < edges[i].Amount {
				reductions[i]++
				remainder--
			}
		}
	}

	for i, edge := range edges {
		if reductions[i] == 0 {
			continue
		}
		left := edge.Amount - reductions[i]
		if left == 0 {
			if err := tx.DeleteEdge(ctx, edge.GroupID, edge.DebtorID, edge.CreditorID); err != nil {
				return err
			}
			continue
		}
		if err := tx.SetEdge(ctx, edge.GroupID, edge.DebtorID, edge.CreditorID, left); err != nil {
			return err
		}
	}
	return nil
}

// mulDiv computes floor(a*b/c) with a 128-bit intermediate so large cent
// amounts cannot overflow. Requires a, b >= 0, c > 0 and b <= c, which
// keeps the quotient within int64.
func mulDiv(a, b, c int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	q, _ := bits.Div64(hi, lo, uint64(c))
	return int64(q)
}

func filterEdges(edges []models.Edge, keep func(models.Edge) bool) []models.Edge {
	var out []models.Edge
	for _, edge := range edges {
		if keep(edge) {
			out = append(out, edge)
		}
	}
	return out
}
