package memory

import (
	"context"
	"fmt"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Tx is a pgx.Tx that stages writes in memory. Only Commit and Rollback are
// implemented; the repositories in this package are its only other users.
type Tx struct {
	pgx.Tx

	store        *Store
	readOnly     bool
	done         bool
	balances     map[string]decimal.Decimal
	transactions []*domain.Transaction
	logs         []domain.IdempotencyLog
}

// Commit applies staged writes atomically. A read-only Tx releases its snapshot.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	if t.readOnly {
		t.store.mu.RUnlock()
		return nil
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, log := range t.logs {
		if _, exists := t.store.idempotency[log.Key]; exists {
			return fmt.Errorf("commit: %w", ports.ErrDuplicateIdempotencyKey)
		}
	}
	t.store.apply(t)
	return nil
}

// Rollback discards staged writes.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	if t.readOnly {
		t.store.mu.RUnlock()
	}
	return nil
}

// Transactor implements ports.DBTransactor for the memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a write transaction.
func (tr *Transactor) Begin(_ context.Context) (pgx.Tx, error) {
	return &Tx{store: tr.store, balances: make(map[string]decimal.Decimal)}, nil
}

// BeginReadOnly holds the store's read lock until Commit or Rollback,
// so all reads in the transaction observe one state.
func (tr *Transactor) BeginReadOnly(_ context.Context) (pgx.Tx, error) {
	tr.store.mu.RLock()
	return &Tx{store: tr.store, readOnly: true}, nil
}

func asTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}
	if t.done {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

// read runs fn against committed state. A read-only Tx already holds the read lock.
func (t *Tx) read(fn func()) {
	if t.readOnly {
		fn()
		return
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	fn()
}
