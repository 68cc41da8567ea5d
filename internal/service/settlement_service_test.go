package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mkale/splitledger/internal/models"
)

func TestRecordDirect(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "alice", 6000, "alice", "bob")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	recorded, err := ts.settlements.RecordDirect(ctx, &models.Settlement{
		GroupID:    "g",
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     1000,
		Note:       "partial payback",
	})
	if err != nil {
		t.Fatalf("RecordDirect failed: %v", err)
	}
	if recorded.ID == "" {
		t.Error("expected settlement ID to be assigned")
	}
	if recorded.Kind != models.SettlementDirect {
		t.Errorf("kind = %s, want %s", recorded.Kind, models.SettlementDirect)
	}

	want := map[string]int64{"bob->alice": 2000}
	if got := ts.edgeMap(t, "g"); !reflect.DeepEqual(got, want) {
		t.Errorf("ledger = %v, want %v", got, want)
	}

	stored, err := ts.settlements.GetSettlement(ctx, recorded.ID)
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if stored.Note != "partial payback" || stored.Amount != 1000 {
		t.Errorf("stored settlement mismatch: %+v", stored)
	}
}

func TestRecordDirectRejectionLeavesNoAuditRecord(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "alice", 6000, "alice", "bob")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	// More than the tracked debt of 3000.
	_, err := ts.settlements.RecordDirect(ctx, &models.Settlement{
		GroupID:    "g",
		FromUserID: "bob",
		ToUserID:   "alice",
		Amount:     5000,
	})
	if !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// No edge at all in the other direction.
	_, err = ts.settlements.RecordDirect(ctx, &models.Settlement{
		GroupID:    "g",
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     100,
	})
	if !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	want := map[string]int64{"bob->alice": 3000}
	if got := ts.edgeMap(t, "g"); !reflect.DeepEqual(got, want) {
		t.Errorf("rejected settlements mutated the ledger: %v", got)
	}
	audit, err := ts.settlements.ListGroupSettlements(ctx, "g")
	if err != nil {
		t.Fatalf("ListGroupSettlements failed: %v", err)
	}
	if len(audit) != 0 {
		t.Errorf("rejected settlements were recorded: %v", audit)
	}
}

func TestRecordSmartChain(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	// C owes B 50, B owes A 50. C pays A directly.
	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "B", 10000, "B", "C")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "A", 10000, "A", "B")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	result, err := ts.settlements.RecordSmart(ctx, &models.Settlement{
		GroupID:    "g",
		FromUserID: "C",
		ToUserID:   "A",
		Amount:     5000,
	})
	if err != nil {
		t.Fatalf("RecordSmart failed: %v", err)
	}
	if result.Settlement.Kind != models.SettlementSmart {
		t.Errorf("kind = %s, want %s", result.Settlement.Kind, models.SettlementSmart)
	}
	if result.RemainingBalance != 0 {
		t.Errorf("remaining balance = %d, want 0", result.RemainingBalance)
	}

	if got := ts.edgeMap(t, "g"); len(got) != 0 {
		t.Errorf("ledger not empty after chain settlement: %v", got)
	}
}

func TestRecordSmartPartialReportsRemaining(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "B", 10000, "B", "C")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "A", 10000, "A", "B")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	result, err := ts.settlements.RecordSmart(ctx, &models.Settlement{
		GroupID:    "g",
		FromUserID: "C",
		ToUserID:   "A",
		Amount:     2000,
	})
	if err != nil {
		t.Fatalf("RecordSmart failed: %v", err)
	}
	if result.RemainingBalance != -3000 {
		t.Errorf("remaining balance = %d, want -3000", result.RemainingBalance)
	}

	want := map[string]int64{"C->B": 3000, "B->A": 3000}
	if got := ts.edgeMap(t, "g"); !reflect.DeepEqual(got, want) {
		t.Errorf("ledger = %v, want %v", got, want)
	}
}

func TestRecordSmartRejectionLeavesNoAuditRecord(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "alice", 6000, "alice", "bob")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	// alice is a net creditor, not a debtor.
	_, err := ts.settlements.RecordSmart(ctx, &models.Settlement{
		GroupID:    "g",
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     100,
	})
	if !errors.Is(err, models.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}

	audit, err := ts.settlements.ListGroupSettlements(ctx, "g")
	if err != nil {
		t.Fatalf("ListGroupSettlements failed: %v", err)
	}
	if len(audit) != 0 {
		t.Errorf("rejected settlement was recorded: %v", audit)
	}
}

func TestListSettlementsNewestFirst(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if _, err := ts.expenses.AddExpense(ctx, equalExpense("g", "alice", 9000, "alice", "bob")); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}

	for i, amount := range []int64{1000, 1500, 2000} {
		if _, err := ts.settlements.RecordDirect(ctx, &models.Settlement{
			GroupID:    "g",
			FromUserID: "bob",
			ToUserID:   "alice",
			Amount:     amount,
			CreatedAt:  int64(1000 + i),
		}); err != nil {
			t.Fatalf("RecordDirect failed: %v", err)
		}
	}

	settlements, err := ts.settlements.ListGroupSettlements(ctx, "g")
	if err != nil {
		t.Fatalf("ListGroupSettlements failed: %v", err)
	}
	if len(settlements) != 3 {
		t.Fatalf("got %d settlements, want 3", len(settlements))
	}
	if settlements[0].Amount != 2000 || settlements[2].Amount != 1000 {
		t.Errorf("settlements not newest first: %v", settlements)
	}

	forBob, err := ts.settlements.ListUserSettlements(ctx, "bob")
	if err != nil {
		t.Fatalf("ListUserSettlements failed: %v", err)
	}
	if len(forBob) != 3 {
		t.Errorf("bob involved in %d settlements, want 3", len(forBob))
	}
	forCarol, err := ts.settlements.ListUserSettlements(ctx, "carol")
	if err != nil {
		t.Fatalf("ListUserSettlements failed: %v", err)
	}
	if len(forCarol) != 0 {
		t.Errorf("carol involved in %d settlements, want 0", len(forCarol))
	}
}
