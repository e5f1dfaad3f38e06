// Package lock provides per-account locking for balance operations within one process.
// It complements the row lock taken by the ledger so concurrent requests for the
// same account queue here instead of holding database connections while they wait.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the wait bound.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// entry is a one-slot semaphore with a reference count for cleanup.
type entry struct {
	ch   chan struct{}
	refs int
}

// AccountLock serializes operations per account ID.
type AccountLock struct {
	mu    sync.Mutex
	locks map[int64]*entry
	wait  time.Duration
}

// New creates an AccountLock. wait bounds each acquisition; zero waits for the context only.
func New(wait time.Duration) *AccountLock {
	return &AccountLock{
		locks: make(map[int64]*entry),
		wait:  wait,
	}
}

func (l *AccountLock) ref(accountID int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[accountID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[accountID] = e
	}
	e.refs++
	return e
}

func (l *AccountLock) unref(accountID int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, accountID)
	}
}

// Lock acquires the lock for an account. It returns ErrLockTimeout when the
// wait bound elapses and the context error when ctx is done first.
func (l *AccountLock) Lock(ctx context.Context, accountID int64) error {
	e := l.ref(accountID)

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(accountID, e)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *AccountLock) TryLock(accountID int64) bool {
	e := l.ref(accountID)
	select {
	case e.ch <- struct{}{}:
		return true
	default:
		l.unref(accountID, e)
		return false
	}
}

// Unlock releases the lock for an account. Unlocking an account that is not
// locked is a no-op.
func (l *AccountLock) Unlock(accountID int64) {
	l.mu.Lock()
	e, ok := l.locks[accountID]
	l.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-e.ch:
		l.unref(accountID, e)
	default:
	}
}

// WithLock executes fn while holding the account's lock.
func (l *AccountLock) WithLock(ctx context.Context, accountID int64, fn func() error) error {
	if err := l.Lock(ctx, accountID); err != nil {
		return err
	}
	defer l.Unlock(accountID)
	return fn()
}

// IsLocked checks if an account currently holds the lock.
// This is a point-in-time check and may change immediately after.
func (l *AccountLock) IsLocked(accountID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[accountID]
	return ok && len(e.ch) == 1
}

// Len returns the number of accounts with a holder or waiter.
func (l *AccountLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
