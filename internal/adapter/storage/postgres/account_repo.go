package postgres

import (
	"context"
	"errors"
	"fmt"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Balances travel as text so NUMERIC values keep their exact scale.
const accountColumns = `identifier, owner_id, currency, balance::text, created_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account. A taken identifier yields ports.ErrDuplicateIdentifier.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (identifier, owner_id, currency, balance, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		a.Identifier, a.OwnerID, string(a.Currency), a.Balance.String(), a.CreatedAt,
	)
	if err != nil {
		return translate("insert account", err, ports.ErrDuplicateIdentifier)
	}
	return nil
}

// GetByIdentifier fetches an account without locking.
func (r *AccountRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identifier = $1`

	return scanAccount(r.pool.QueryRow(ctx, query, identifier), "get account")
}

// GetByIdentifierTx fetches an account inside tx without locking.
func (r *AccountRepo) GetByIdentifierTx(ctx context.Context, tx pgx.Tx, identifier string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identifier = $1`

	return scanAccount(tx.QueryRow(ctx, query, identifier), "get account in tx")
}

// GetByIdentifierForUpdate fetches an account with a row lock.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIdentifierForUpdate(ctx context.Context, tx pgx.Tx, identifier string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identifier = $1 FOR UPDATE`

	return scanAccount(tx.QueryRow(ctx, query, identifier), "get account for update")
}

// ListByOwner returns the owner's accounts in creation order.
func (r *AccountRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at, identifier`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows, "scan account")
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// UpdateBalance sets an account's balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, identifier string, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1 WHERE identifier = $2`

	tag, err := tx.Exec(ctx, query, balance.String(), identifier)
	if err != nil {
		return translate("update account balance", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", identifier)
	}
	return nil
}

func scanAccount(row pgx.Row, op string) (*domain.Account, error) {
	var (
		a        domain.Account
		currency string
		balance  string
	)
	err := row.Scan(&a.Identifier, &a.OwnerID, &currency, &balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(op, err, nil)
	}

	a.Currency = domain.Currency(currency)
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("%s: parse balance %q: %w", op, balance, err)
	}
	return &a, nil
}
