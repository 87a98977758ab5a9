package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"account-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	store *Store
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Create assigns the next ID and stages the movement in tx.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}
	if mt.readOnly {
		return fmt.Errorf("insert transaction: read-only transaction")
	}

	t.ID = r.store.nextID()
	t.Timestamp = time.Now().UTC()
	cp := *t
	mt.transactions = append(mt.transactions, &cp)
	return nil
}

// ListByIdentifier returns committed and staged movements touching identifier, newest first.
func (r *TransactionRepo) ListByIdentifier(_ context.Context, tx pgx.Tx, identifier string) ([]domain.Transaction, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Transaction, 0)
	mt.read(func() {
		for i := range r.store.transactions {
			if r.store.transactions[i].Touches(identifier) {
				result = append(result, r.store.transactions[i])
			}
		}
	})
	for _, t := range mt.transactions {
		if t.Touches(identifier) {
			result = append(result, *t)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}
