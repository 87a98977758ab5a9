// Package memory is a process-local storage backend implementing the
// repository ports. Transactions stage their writes and apply them atomically
// on Commit, so the ledger engine behaves exactly as it does on PostgreSQL.
package memory

import (
	"sync"
	"sync/atomic"

	"account-ledger/internal/core/domain"
)

// Store holds all committed state.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions []domain.Transaction
	idempotency  map[string]domain.IdempotencyLog
	seq          atomic.Int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]*domain.Account),
		idempotency: make(map[string]domain.IdempotencyLog),
	}
}

// nextID hands out transaction IDs. Gaps appear when a transaction rolls back.
func (s *Store) nextID() int64 {
	return s.seq.Add(1)
}

// apply writes a committed Tx. Caller holds s.mu for writing.
func (s *Store) apply(tx *Tx) {
	for id, balance := range tx.balances {
		if acc, ok := s.accounts[id]; ok {
			acc.Balance = balance
		}
	}
	for _, t := range tx.transactions {
		s.transactions = append(s.transactions, *t)
	}
	for _, log := range tx.logs {
		s.idempotency[log.Key] = log
	}
}
