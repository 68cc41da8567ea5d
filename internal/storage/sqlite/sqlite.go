// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mkale/splitledger/internal/models"
	"github.com/mkale/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
//
// Group-scoped isolation: a per-group mutex serializes WithGroupTx calls
// for the same group while leaving other groups free to proceed, and each
// transaction is a plain sql.Tx so readers outside it only ever see
// committed state.
type SQLiteStore struct {
	db         *sql.DB
	groupLocks sync.Map // groupID -> *sync.Mutex
}

// querier is satisfied by both *sql.DB and *sql.Tx so the edge operations
// can run standalone or inside a group transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithGroupTx runs fn inside a transaction exclusive for the given group.
func (s *SQLiteStore) WithGroupTx(ctx context.Context, groupID string, fn func(tx storage.LedgerTx) error) error {
	mu := s.groupLock(groupID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) groupLock(groupID string) *sync.Mutex {
	v, _ := s.groupLocks.LoadOrStore(groupID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// GetEdge returns the amount debtor owes creditor, or 0 if no edge exists.
func (s *SQLiteStore) GetEdge(ctx context.Context, groupID, debtorID, creditorID string) (int64, error) {
	return getEdge(ctx, s.db, groupID, debtorID, creditorID)
}

// SetEdge upserts an edge.
func (s *SQLiteStore) SetEdge(ctx context.Context, groupID, debtorID, creditorID string, amount int64) error {
	return setEdge(ctx, s.db, groupID, debtorID, creditorID, amount)
}

// DeleteEdge removes an edge if present.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, groupID, debtorID, creditorID string) error {
	return deleteEdge(ctx, s.db, groupID, debtorID, creditorID)
}

// ListEdges returns all edges in a group.
func (s *SQLiteStore) ListEdges(ctx context.Context, groupID string) ([]models.Edge, error) {
	return listEdges(ctx, s.db, groupID)
}

// ListEdgesByUser returns all edges across groups touching the user.
func (s *SQLiteStore) ListEdgesByUser(ctx context.Context, userID string) ([]models.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, debtor_id, creditor_id, amount FROM edges
		 WHERE debtor_id = ? OR creditor_id = ?
		 ORDER BY group_id, debtor_id, creditor_id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges by user: %w", err)
	}
	return scanEdges(rows)
}

// ListGroups returns the IDs of all groups that currently have edges.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT group_id FROM edges ORDER BY group_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var groupID string
		if err := rows.Scan(&groupID); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		groups = append(groups, groupID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// ledgerTx adapts a sql.Tx to the storage.LedgerTx contract.
type ledgerTx struct {
	q querier
}

var _ storage.LedgerTx = (*ledgerTx)(nil)

func (t *ledgerTx) GetEdge(ctx context.Context, groupID, debtorID, creditorID string) (int64, error) {
	return getEdge(ctx, t.q, groupID, debtorID, creditorID)
}

func (t *ledgerTx) SetEdge(ctx context.Context, groupID, debtorID, creditorID string, amount int64) error {
	return setEdge(ctx, t.q, groupID, debtorID, creditorID, amount)
}

func (t *ledgerTx) DeleteEdge(ctx context.Context, groupID, debtorID, creditorID string) error {
	return deleteEdge(ctx, t.q, groupID, debtorID, creditorID)
}

func (t *ledgerTx) ListEdges(ctx context.Context, groupID string) ([]models.Edge, error) {
	return listEdges(ctx, t.q, groupID)
}

func getEdge(ctx context.Context, q querier, groupID, debtorID, creditorID string) (int64, error) {
	var amount int64
	err := q.QueryRowContext(ctx,
		"SELECT amount FROM edges WHERE group_id = ? AND debtor_id = ? AND creditor_id = ?",
		groupID, debtorID, creditorID,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get edge: %w", err)
	}
	return amount, nil
}

func setEdge(ctx context.Context, q querier, groupID, debtorID, creditorID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: edge amount must be positive, got %d", models.ErrValidation, amount)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO edges (group_id, debtor_id, creditor_id, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT (group_id, debtor_id, creditor_id) DO UPDATE SET amount = excluded.amount`,
		groupID, debtorID, creditorID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to set edge: %w", err)
	}
	return nil
}

func deleteEdge(ctx context.Context, q querier, groupID, debtorID, creditorID string) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM edges WHERE group_id = ? AND debtor_id = ? AND creditor_id = ?",
		groupID, debtorID, creditorID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return nil
}

func listEdges(ctx context.Context, q querier, groupID string) ([]models.Edge, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT group_id, debtor_id, creditor_id, amount FROM edges
		 WHERE group_id = ? ORDER BY debtor_id, creditor_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]models.Edge, error) {
	defer rows.Close()

	var edges []models.Edge
	for rows.Next() {
		var edge models.Edge
		if err := rows.Scan(&edge.GroupID, &edge.DebtorID, &edge.CreditorID, &edge.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}
	return edges, nil
}
