package memory

import (
	"context"
	"fmt"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	store *Store
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

// Create stages log in tx.
func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	var exists bool
	t.read(func() { _, exists = r.store.idempotency[log.Key] })
	for _, staged := range t.logs {
		exists = exists || staged.Key == log.Key
	}
	if exists {
		return fmt.Errorf("insert idempotency log: %w", ports.ErrDuplicateIdempotencyKey)
	}

	t.logs = append(t.logs, *log)
	return nil
}

// Get returns the committed log for key, or nil.
func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	log, ok := r.store.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &log, nil
}
