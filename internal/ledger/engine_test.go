package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage/sqlite"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(dbPath)
	})
	return NewEngine(store)
}

// edgeMap flattens the group's edges into "debtor->creditor": amount for
// easy comparison.
func edgeMap(t *testing.T, e *Engine, groupID string) map[string]int64 {
	t.Helper()

	edges, err := e.store.ListEdges(context.Background(), groupID)
	if err != nil {
		t.Fatalf("failed to list edges: %v", err)
	}
	m := make(map[string]int64, len(edges))
	for _, edge := range edges {
		m[edge.DebtorID+"->"+edge.CreditorID] = edge.Amount
	}
	return m
}

func mustApply(t *testing.T, e *Engine, groupID, debtor, creditor string, amount int64) {
	t.Helper()
	if err := e.ApplyDebt(context.Background(), groupID, debtor, creditor, amount); err != nil {
		t.Fatalf("ApplyDebt(%s, %s->%s, %d) failed: %v", groupID, debtor, creditor, amount, err)
	}
}

func assertConserved(t *testing.T, e *Engine, groupID string) {
	t.Helper()

	net, err := e.NetPositions(context.Background(), groupID)
	if err != nil {
		t.Fatalf("NetPositions failed: %v", err)
	}
	var sum int64
	for _, amount := range net {
		sum += amount
	}
	if sum != 0 {
		t.Fatalf("net positions sum to %d, want 0: %v", sum, net)
	}
	if err := e.VerifyConservation(context.Background(), groupID); err != nil {
		t.Fatalf("VerifyConservation failed: %v", err)
	}
}

func TestApplyDebtNetting(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, e *Engine)
		want  map[string]int64
	}{
		{
			name: "new edge created",
			setup: func(t *testing.T, e *Engine) {
				mustApply(t, e, "g", "bob", "alice", 3000)
			},
			want: map[string]int64{"bob->alice": 3000},
		},
		{
			name: "same direction accumulates",
			setup: func(t *testing.T, e *Engine) {
				mustApply(t, e, "g", "bob", "alice", 3000)
				mustApply(t, e, "g", "bob", "alice", 1500)
			},
			want: map[string]int64{"bob->alice": 4500},
		},
		{
			name: "smaller reverse shrinks existing edge",
			setup: func(t *testing.T, e *Engine) {
				mustApply(t, e, "g", "bob", "alice", 3000)
				mustApply(t, e, "g", "alice", "bob", 2000)
			},
			want: map[string]int64{"bob->alice": 1000},
		},
		{
			name: "equal reverse cancels edge entirely",
			setup: func(t *testing.T, e *Engine) {
				mustApply(t, e, "g", "bob", "alice", 3000)
				mustApply(t, e, "g", "alice", "bob", 3000)
			},
			want: map[string]int64{},
		},
		{
			name: "larger reverse flips edge direction",
			setup: func(t *testing.T, e *Engine) {
				mustApply(t, e, "g", "bob", "alice", 3000)
				mustApply(t, e, "g", "alice", "bob", 5000)
			},
			want: map[string]int64{"alice->bob": 2000},
		},
		{
			name: "spec scenario two expenses",
			setup: func(t *testing.T, e *Engine) {
				// A pays 90 split equally: B->A 30, C->A 30.
				mustApply(t, e, "g", "B", "A", 3000)
				mustApply(t, e, "g", "C", "A", 3000)
				// B pays 60 split equally: A->B 20 nets against B->A 30,
				// C->B 20 is new.
				mustApply(t, e, "g", "A", "B", 2000)
				mustApply(t, e, "g", "C", "B", 2000)
			},
			want: map[string]int64{"B->A": 1000, "C->A": 3000, "C->B": 2000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			tt.setup(t, e)
			if got := edgeMap(t, e, "g"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ledger = %v, want %v", got, tt.want)
			}
			assertConserved(t, e, "g")
		})
	}
}

func TestApplyDebtCancellationRestoresLedger(t *testing.T) {
	e := newTestEngine(t)

	mustApply(t, e, "g", "bob", "alice", 1234)
	mustApply(t, e, "g", "carol", "bob", 777)
	before := edgeMap(t, e, "g")

	mustApply(t, e, "g", "dave", "alice", 999)
	mustApply(t, e, "g", "alice", "dave", 999)

	if got := edgeMap(t, e, "g"); !reflect.DeepEqual(got, before) {
		t.Errorf("ledger after cancellation = %v, want %v", got, before)
	}
	assertConserved(t, e, "g")
}

func TestApplyDebtValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		group  string
		debtor string
		credit string
		amount int64
	}{
		{name: "zero amount", group: "g", debtor: "a", credit: "b", amount: 0},
		{name: "negative amount", group: "g", debtor: "a", credit: "b", amount: -100},
		{name: "self debt", group: "g", debtor: "a", credit: "a", amount: 100},
		{name: "missing group", group: "", debtor: "a", credit: "b", amount: 100},
		{name: "missing debtor", group: "g", debtor: "", credit: "b", amount: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.ApplyDebt(ctx, tt.group, tt.debtor, tt.credit, tt.amount)
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	if got := edgeMap(t, e, "g"); len(got) != 0 {
		t.Errorf("rejected calls mutated the ledger: %v", got)
	}
}

func TestApplyDeltasAtomic(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	deltas := []Delta{
		{DebtorID: "bob", CreditorID: "alice", Amount: 100},
		{DebtorID: "carol", CreditorID: "alice", Amount: 0}, // invalid
	}
	if err := e.ApplyDeltas(ctx, "g", deltas); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := edgeMap(t, e, "g"); len(got) != 0 {
		t.Errorf("failed batch left partial state: %v", got)
	}
}

func TestNetPositions(t *testing.T) {
	e := newTestEngine(t)

	mustApply(t, e, "g", "B", "A", 1000)
	mustApply(t, e, "g", "C", "A", 3000)
	mustApply(t, e, "g", "C", "B", 2000)

	net, err := e.NetPositions(context.Background(), "g")
	if err != nil {
		t.Fatalf("NetPositions failed: %v", err)
	}

	want := map[string]int64{"A": 4000, "B": 1000, "C": -5000}
	if !reflect.DeepEqual(net, want) {
		t.Errorf("NetPositions = %v, want %v", net, want)
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	e := newTestEngine(t)

	mustApply(t, e, "g1", "bob", "alice", 1000)
	mustApply(t, e, "g2", "alice", "bob", 700)

	if got := edgeMap(t, e, "g1"); !reflect.DeepEqual(got, map[string]int64{"bob->alice": 1000}) {
		t.Errorf("g1 ledger = %v", got)
	}
	if got := edgeMap(t, e, "g2"); !reflect.DeepEqual(got, map[string]int64{"alice->bob": 700}) {
		t.Errorf("g2 ledger = %v", got)
	}
	assertConserved(t, e, "g1")
	assertConserved(t, e, "g2")
}

func TestSettleDirect(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	mustApply(t, e, "g", "bob", "alice", 3000)

	if err := e.SettleDirect(ctx, "g", "bob", "alice", 1000); err != nil {
		t.Fatalf("SettleDirect failed: %v", err)
	}
	if got := edgeMap(t, e, "g"); !reflect.DeepEqual(got, map[string]int64{"bob->alice": 2000}) {
		t.Errorf("ledger after partial settlement = %v", got)
	}

	// Paying more than the tracked edge is rejected, not clamped.
	err := e.SettleDirect(ctx, "g", "bob", "alice", 2500)
	if !errors.Is(err, models.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := edgeMap(t, e, "g"); !reflect.DeepEqual(got, map[string]int64{"bob->alice": 2000}) {
		t.Errorf("rejected settlement mutated the ledger: %v", got)
	}

	// Settling the exact remainder clears the edge.
	if err := e.SettleDirect(ctx, "g", "bob", "alice", 2000); err != nil {
		t.Fatalf("SettleDirect failed: %v", err)
	}
	if got := edgeMap(t, e, "g"); len(got) != 0 {
		t.Errorf("ledger not empty after full settlement: %v", got)
	}
	assertConserved(t, e, "g")
}

func TestSettleDirectNoEdge(t *testing.T) {
	e := newTestEngine(t)

	err := e.SettleDirect(context.Background(), "g", "bob", "alice", 100)
	if !errors.Is(err, models.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance with no edge, got %v", err)
	}
}
