package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkale/splitledger/internal/ledger"
	"github.com/mkale/splitledger/internal/metrics"
	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage"
)

// SettlementService applies settlements to the ledger and keeps the
// append-only audit trail.
type SettlementService struct {
	store  storage.Store
	engine *ledger.Engine
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store storage.Store, engine *ledger.Engine) *SettlementService {
	return &SettlementService{store: store, engine: engine}
}

// SmartSettlementResult is the outcome of a smart settlement: the audit
// record plus the payer's remaining net position in the group.
type SmartSettlementResult struct {
	Settlement       *models.Settlement
	RemainingBalance int64
}

// RecordDirect settles part or all of the direct payer->recipient debt.
// The amount must not exceed the tracked edge; larger payments are
// rejected, not clamped.
func (s *SettlementService) RecordDirect(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error) {
	if err := s.engine.SettleDirect(ctx, settlement.GroupID, settlement.FromUserID, settlement.ToUserID, settlement.Amount); err != nil {
		slog.Warn("direct settlement rejected",
			"group_id", settlement.GroupID,
			"from", settlement.FromUserID,
			"to", settlement.ToUserID,
			"amount_cents", settlement.Amount,
			"error", err,
		)
		return nil, err
	}

	settlement.Kind = models.SettlementDirect
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("failed to record direct settlement audit entry",
			"group_id", settlement.GroupID, "error", err)
		return nil, fmt.Errorf("settlement applied but audit record failed: %w", err)
	}

	metrics.SettlementsRecorded.WithLabelValues(string(models.SettlementDirect)).Inc()
	slog.Info("direct settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", settlement.GroupID,
		"from", settlement.FromUserID,
		"to", settlement.ToUserID,
		"amount_cents", settlement.Amount,
	)
	return settlement, nil
}

// RecordSmart clears the payer's debt against the recipient's credit by
// proportional redistribution, then appends the audit record and reports
// the payer's remaining net position.
func (s *SettlementService) RecordSmart(ctx context.Context, settlement *models.Settlement) (*SmartSettlementResult, error) {
	if err := s.engine.SettleSmart(ctx, settlement.GroupID, settlement.FromUserID, settlement.ToUserID, settlement.Amount); err != nil {
		slog.Warn("smart settlement rejected",
			"group_id", settlement.GroupID,
			"from", settlement.FromUserID,
			"to", settlement.ToUserID,
			"amount_cents", settlement.Amount,
			"error", err,
		)
		return nil, err
	}

	settlement.Kind = models.SettlementSmart
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("failed to record smart settlement audit entry",
			"group_id", settlement.GroupID, "error", err)
		return nil, fmt.Errorf("settlement applied but audit record failed: %w", err)
	}

	net, err := s.engine.NetPositions(ctx, settlement.GroupID)
	if err != nil {
		return nil, err
	}

	metrics.SettlementsRecorded.WithLabelValues(string(models.SettlementSmart)).Inc()
	slog.Info("smart settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", settlement.GroupID,
		"from", settlement.FromUserID,
		"to", settlement.ToUserID,
		"amount_cents", settlement.Amount,
		"remaining_cents", net[settlement.FromUserID],
	)
	return &SmartSettlementResult{
		Settlement:       settlement,
		RemainingBalance: net[settlement.FromUserID],
	}, nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SettlementService) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	return s.store.GetSettlement(ctx, settlementID)
}

// ListGroupSettlements returns a group's settlements, newest first.
func (s *SettlementService) ListGroupSettlements(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return s.store.ListSettlementsByGroup(ctx, groupID)
}

// ListUserSettlements returns settlements involving the user, newest first.
func (s *SettlementService) ListUserSettlements(ctx context.Context, userID string) ([]*models.Settlement, error) {
	return s.store.ListSettlementsByUser(ctx, userID)
}
