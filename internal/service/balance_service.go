package service

import (
	"context"
	"sort"

	"github.com/mkale/splitledger/internal/calculator"
	"github.com/mkale/splitledger/internal/ledger"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage"
)

// BalanceService exposes the read-side projections over the ledger: raw
// edges, per-user balances, net positions, and settlement suggestions.
// It never mutates anything.
type BalanceService struct {
	store  storage.LedgerStore
	engine *ledger.Engine
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(store storage.LedgerStore, engine *ledger.Engine) *BalanceService {
	return &BalanceService{store: store, engine: engine}
}

// GroupBalances returns the current edges of a group.
func (s *BalanceService) GroupBalances(ctx context.Context, groupID string) ([]models.Edge, error) {
	return s.store.ListEdges(ctx, groupID)
}

// NetPositions returns each user's net position in the group, sorted by
// user ID for reproducible output. Users without edges are omitted.
func (s *BalanceService) NetPositions(ctx context.Context, groupID string) ([]models.NetPosition, error) {
	net, err := s.engine.NetPositions(ctx, groupID)
	if err != nil {
		return nil, err
	}

	positions := make([]models.NetPosition, 0, len(net))
	for userID, amount := range net {
		positions = append(positions, models.NetPosition{UserID: userID, Amount: amount})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].UserID < positions[j].UserID })
	return positions, nil
}

// SimplifiedBalances suggests a near-minimal set of payments that would
// clear the group. Suggestions only; the ledger is not touched.
func (s *BalanceService) SimplifiedBalances(ctx context.Context, groupID string) ([]models.SuggestedTransaction, error) {
	net, err := s.engine.NetPositions(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return calculator.Simplify(net), nil
}

// UserGroupBalances returns what the user owes and is owed within one
// group, plus their net position.
func (s *BalanceService) UserGroupBalances(ctx context.Context, groupID, userID string) (*models.UserBalances, error) {
	edges, err := s.store.ListEdges(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return userBalancesFromEdges(userID, edges), nil
}

// UserBalances returns what the user owes and is owed across all groups,
// plus the overall net.
func (s *BalanceService) UserBalances(ctx context.Context, userID string) (*models.UserBalances, error) {
	edges, err := s.store.ListEdgesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userBalancesFromEdges(userID, edges), nil
}

func userBalancesFromEdges(userID string, edges []models.Edge) *models.UserBalances {
	balances := &models.UserBalances{UserID: userID}
	for _, edge := range edges {
		switch userID {
		case edge.DebtorID:
			balances.Owes = append(balances.Owes, edge)
			balances.Net -= edge.Amount
		case edge.CreditorID:
			balances.Owed = append(balances.Owed, edge)
			balances.Net += edge.Amount
		}
	}
	return balances
}
