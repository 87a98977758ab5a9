package postgres

import (
	"context"
	"fmt"

	"account-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository on the append-only transactions table.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a movement within a database transaction and fills in its
// sequence ID and timestamp.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (kind, sender_identifier, receiver_identifier, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		string(t.Kind), t.SenderIdentifier, t.ReceiverIdentifier, t.Amount.String(),
	).Scan(&t.ID, &t.Timestamp)
	if err != nil {
		return translate("insert transaction", err, nil)
	}
	return nil
}

// ListByIdentifier returns every movement that debited or credited identifier, newest first.
func (r *TransactionRepo) ListByIdentifier(ctx context.Context, tx pgx.Tx, identifier string) ([]domain.Transaction, error) {
	query := `SELECT id, kind, sender_identifier, receiver_identifier, amount::text, created_at
		FROM transactions
		WHERE sender_identifier = $1 OR receiver_identifier = $1
		ORDER BY id DESC`

	rows, err := tx.Query(ctx, query, identifier)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Transaction, 0)
	for rows.Next() {
		var (
			t      domain.Transaction
			amount string
		)
		if err := rows.Scan(&t.ID, &t.Kind, &t.SenderIdentifier, &t.ReceiverIdentifier, &amount, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return result, nil
}
