package postgres

import (
	"errors"
	"fmt"

	"account-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the adapter translates into port errors.
const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
)

// translate wraps err with op and maps known SQLSTATEs onto port sentinels.
// dup is the sentinel to use for a unique violation; nil keeps the raw error.
func translate(op string, err error, dup error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if dup != nil {
				return fmt.Errorf("%s: %w", op, dup)
			}
		case codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %s", op, ports.ErrLockTimeout, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
