//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

package ports

import (
	"context"
	"time"

	"account-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// IdentifierGenerator produces new account identifiers. Implementations must be safe for concurrent use.
type IdentifierGenerator interface {
	Generate() (string, error)
}

// AccountLocker serializes movements on the same accounts.
// Lock acquires every identifier in ascending order and returns a release func.
// It returns ErrLockTimeout if the locks cannot be acquired within the configured bound.
type AccountLocker interface {
	Lock(ctx context.Context, identifiers ...string) (func(), error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(principalID string, ttl time.Duration) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	PrincipalID string
	ExpiresAt   time.Time
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix seconds at which the current window ends
}

// EventPublisher emits committed movements to downstream consumers.
type EventPublisher interface {
	PublishMovement(ctx context.Context, event domain.MovementCommitted) error
	Close() error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the account ledger and transfer engine.
// principalID is the authenticated caller; every mutation is checked against it.
type LedgerService interface {
	OpenAccount(ctx context.Context, principalID string, currency domain.Currency) (*domain.Account, error)
	ListAccounts(ctx context.Context, principalID string) ([]domain.Account, error)
	GetCurrency(ctx context.Context, principalID, identifier string) (domain.Currency, error)
	GetDetails(ctx context.Context, principalID, identifier string) (*domain.AccountDetails, error)
	ApplyMovement(ctx context.Context, req MovementRequest) (*domain.Transaction, error)
}

// MovementRequest holds input for a single balance movement.
type MovementRequest struct {
	PrincipalID string
	Identifier  string
	Kind        domain.TransactionKind
	Amount      decimal.Decimal
	// CounterpartyIdentifier is the destination of a TRANSFER.
	CounterpartyIdentifier string
	// RequestID optionally makes the movement idempotent per principal.
	RequestID string
}
