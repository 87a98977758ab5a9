package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
)

// AccountLocker implements ports.AccountLocker inside one process.
// Each account has a one-slot semaphore so waiting can be bounded.
type AccountLocker struct {
	mu      sync.Mutex
	slots   map[string]chan struct{}
	timeout time.Duration
}

// NewAccountLocker creates a locker that waits at most timeout for all locks.
func NewAccountLocker(timeout time.Duration) *AccountLocker {
	return &AccountLocker{
		slots:   make(map[string]chan struct{}),
		timeout: timeout,
	}
}

func (l *AccountLocker) slot(identifier string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[identifier]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[identifier] = ch
	}
	return ch
}

// Lock acquires every account in ascending identifier order.
func (l *AccountLocker) Lock(ctx context.Context, identifiers ...string) (func(), error) {
	ids := domain.LockOrder(identifiers...)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]chan struct{}, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ids {
		ch := l.slot(id)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-timer.C:
			release()
			return nil, fmt.Errorf("%w: account %s", ports.ErrLockTimeout, id)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
