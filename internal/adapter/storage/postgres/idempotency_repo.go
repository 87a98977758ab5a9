package postgres

import (
	"context"
	"errors"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const idempotencyColumns = `key, fingerprint, transaction_id, response_json, created_at`

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create records a movement's outcome inside the movement's own transaction.
// If another request already holds the key, Create waits for it to commit and
// then reports ports.ErrDuplicateIdempotencyKey without aborting tx.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.IdempotencyLog) error {
	query := `INSERT INTO idempotency_logs (` + idempotencyColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO NOTHING`

	tag, err := tx.Exec(ctx, query, entry.Key, entry.Fingerprint, entry.TransactionID, entry.ResponseJSON, entry.CreatedAt)
	if err != nil {
		return translate("insert idempotency log", err, ports.ErrDuplicateIdempotencyKey)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrDuplicateIdempotencyKey
	}
	return nil
}

// Get returns the committed entry for key, or nil if the key was never used.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_logs WHERE key = $1`
	return scanIdempotencyLog(r.pool.QueryRow(ctx, query, key))
}

func scanIdempotencyLog(row pgx.Row) (*domain.IdempotencyLog, error) {
	var entry domain.IdempotencyLog
	err := row.Scan(&entry.Key, &entry.Fingerprint, &entry.TransactionID, &entry.ResponseJSON, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("get idempotency log", err, nil)
	}
	return &entry, nil
}
