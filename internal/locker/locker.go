// Package locker provides advisory, resource-keyed mutual exclusion for
// read-modify-write sequences that span several record-store operations.
package locker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockWait is returned when a lock could not be acquired before the
// configured wait deadline.
var ErrLockWait = errors.New("lock_wait_timeout")

// KeyedLocker serializes access to a named resource. The returned release
// function must be called on every exit path; calling it more than once is
// safe.
type KeyedLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker is an in-process mutex registry. Waiters block cooperatively on
// a per-key semaphore until the holder releases, the context is cancelled, or
// the wait deadline passes.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	wait    time.Duration
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &MemoryLocker{
		entries: make(map[string]*memoryEntry),
		wait:    wait,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is empty")
	}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-e.sem
				l.put(key)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.put(key)
		return nil, ctx.Err()
	case <-timer.C:
		l.put(key)
		return nil, ErrLockWait
	}
}

func (l *MemoryLocker) put(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(l.entries, key)
	}
}
