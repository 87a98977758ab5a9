package memory

import (
	"context"
	"fmt"
	"sort"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

// Create stores a new account.
func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.accounts[a.Identifier]; exists {
		return ports.ErrDuplicateIdentifier
	}
	cp := *a
	r.store.accounts[a.Identifier] = &cp
	return nil
}

// GetByIdentifier returns a copy of the committed account, or nil.
func (r *AccountRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.lookup(identifier), nil
}

// GetByIdentifierTx returns the account as seen by tx, including its staged balance.
func (r *AccountRepo) GetByIdentifierTx(_ context.Context, tx pgx.Tx, identifier string) (*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	var acc *domain.Account
	t.read(func() { acc = r.lookup(identifier) })
	if acc == nil {
		return nil, nil
	}
	if staged, ok := t.balances[identifier]; ok {
		acc.Balance = staged
	}
	return acc, nil
}

// GetByIdentifierForUpdate is GetByIdentifierTx; exclusion comes from the AccountLocker.
func (r *AccountRepo) GetByIdentifierForUpdate(ctx context.Context, tx pgx.Tx, identifier string) (*domain.Account, error) {
	return r.GetByIdentifierTx(ctx, tx, identifier)
}

// ListByOwner returns the owner's accounts ordered by creation time, then identifier.
func (r *AccountRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Account, 0)
	for _, a := range r.store.accounts {
		if a.OwnerID == ownerID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Identifier < result[j].Identifier
	})
	return result, nil
}

// UpdateBalance stages a new balance in tx.
func (r *AccountRepo) UpdateBalance(_ context.Context, tx pgx.Tx, identifier string, balance decimal.Decimal) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if t.readOnly {
		return fmt.Errorf("update account balance: read-only transaction")
	}

	var found bool
	t.read(func() { _, found = r.store.accounts[identifier] })
	if !found {
		return fmt.Errorf("account not found: %s", identifier)
	}
	if balance.IsNegative() {
		return fmt.Errorf("update account balance: negative balance for %s", identifier)
	}
	t.balances[identifier] = balance
	return nil
}

// lookup copies an account out of the store. Caller holds the read lock.
func (r *AccountRepo) lookup(identifier string) *domain.Account {
	a, ok := r.store.accounts[identifier]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}
