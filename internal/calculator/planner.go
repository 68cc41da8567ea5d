package calculator

import (
	"sort"

	"github.com/mkale/splitledger/internal/models"
)

// party is one side of the greedy matching: a user and the positive
// magnitude still to be settled.
type party struct {
	userID    string
	remaining int64
}

// Simplify proposes a near-minimal list of payments that would clear every
// nonzero net position in the group. Greedy heuristic: repeatedly match the
// largest remaining debtor with the largest remaining creditor and transfer
// the smaller of the two magnitudes. For n users with nonzero positions the
// output has at most n-1 transactions.
//
// Ties are broken by user ID ascending so identical input always produces
// identical output. The result is a suggestion only; it never mutates the
// ledger.
func Simplify(net map[string]int64) []models.SuggestedTransaction {
	var debtors, creditors []party
	for userID, amount := range net {
		switch {
		case amount < 0:
			debtors = append(debtors, party{userID: userID, remaining: -amount})
		case amount > 0:
			creditors = append(creditors, party{userID: userID, remaining: amount})
		}
	}
	sortParties(debtors)
	sortParties(creditors)

	var suggestions []models.SuggestedTransaction
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]

		transfer := d.remaining
		if c.remaining < transfer {
			transfer = c.remaining
		}
		suggestions = append(suggestions, models.SuggestedTransaction{
			FromUserID: d.userID,
			ToUserID:   c.userID,
			Amount:     transfer,
		})

		d.remaining -= transfer
		c.remaining -= transfer
		if d.remaining == 0 {
			i++
		}
		if c.remaining == 0 {
			j++
		}
	}
	return suggestions
}

func sortParties(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if parties[a].remaining != parties[b].remaining {
			return parties[a].remaining > parties[b].remaining
		}
		return parties[a].userID < parties[b].userID
	})
}
