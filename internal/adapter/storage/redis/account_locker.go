package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix     = "ledger:lock:account:"
	defaultRetryDelay = 25 * time.Millisecond
)

// AccountLocker implements ports.AccountLocker with one redsync mutex per account,
// so movements are serialized across every instance sharing the Redis server.
type AccountLocker struct {
	rs         *redsync.Redsync
	timeout    time.Duration
	expiry     time.Duration
	retryDelay time.Duration
}

// NewAccountLocker creates a distributed account locker.
// timeout bounds the total wait for all locks; expiry is the lease of each lock
// and must exceed the longest movement.
func NewAccountLocker(client goredislib.UniversalClient, timeout, expiry time.Duration) *AccountLocker {
	return &AccountLocker{
		rs:         redsync.New(goredis.NewPool(client)),
		timeout:    timeout,
		expiry:     expiry,
		retryDelay: defaultRetryDelay,
	}
}

// Lock acquires every account lock in ascending identifier order.
func (l *AccountLocker) Lock(ctx context.Context, identifiers ...string) (func(), error) {
	ids := domain.LockOrder(identifiers...)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tries := int(l.timeout/l.retryDelay) + 1
	held := make([]*redsync.Mutex, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			// The request context may already be done; release regardless.
			_, _ = held[i].UnlockContext(context.Background())
		}
	}

	for _, id := range ids {
		m := l.rs.NewMutex(lockKeyPrefix+id,
			redsync.WithExpiry(l.expiry),
			redsync.WithTries(tries),
			redsync.WithRetryDelay(l.retryDelay),
		)
		if err := m.LockContext(waitCtx); err != nil {
			release()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: account %s: %v", ports.ErrLockTimeout, id, err)
		}
		held = append(held, m)
	}

	return release, nil
}
