//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

package ports

import (
	"context"
	"errors"

	"account-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateIdentifier is returned by AccountRepository.Create when the identifier is taken.
	ErrDuplicateIdentifier = errors.New("account identifier already exists")
	// ErrDuplicateIdempotencyKey is returned by IdempotencyRepository.Create on a key collision.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already exists")
	// ErrLockTimeout is returned when an account or row lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock wait timeout")
)

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx run inside the caller's transaction; the ForUpdate
// variant takes a row lock held until commit or rollback.
// Lookups return (nil, nil) when the account does not exist.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	GetByIdentifierTx(ctx context.Context, tx pgx.Tx, identifier string) (*domain.Account, error)
	GetByIdentifierForUpdate(ctx context.Context, tx pgx.Tx, identifier string) (*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, identifier string, balance decimal.Decimal) error
}

// TransactionRepository is the append-only movement log.
type TransactionRepository interface {
	// Create assigns the next ID and the commit timestamp to transaction.
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// ListByIdentifier returns every movement where identifier is sender or receiver, newest first.
	ListByIdentifier(ctx context.Context, tx pgx.Tx, identifier string) ([]domain.Transaction, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	// BeginReadOnly opens a read-only snapshot so multi-query reads are consistent.
	BeginReadOnly(ctx context.Context) (pgx.Tx, error)
}
