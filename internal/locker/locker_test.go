package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	l := NewMemoryLocker(2 * time.Second)
	ctx := context.Background()

	var mu sync.Mutex
	inCritical := 0
	maxConcurrent := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := l.Acquire(ctx, "invoice:INV-1")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inCritical++
			if inCritical > maxConcurrent {
				maxConcurrent = inCritical
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxConcurrent)
}

func TestMemoryLockerIndependentKeys(t *testing.T) {
	l := NewMemoryLocker(50 * time.Millisecond)
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, "invoice:INV-A")
	require.NoError(t, err)
	defer releaseA()

	// A held lock on one key must not block another key.
	releaseB, err := l.Acquire(ctx, "invoice:INV-B")
	require.NoError(t, err)
	releaseB()
}

func TestMemoryLockerWaitTimeout(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "wallet:7:USD")
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = l.Acquire(ctx, "wallet:7:USD")
	require.ErrorIs(t, err, ErrLockWait)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMemoryLockerContextCancel(t *testing.T) {
	l := NewMemoryLocker(5 * time.Second)

	release, err := l.Acquire(context.Background(), "project:9")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = l.Acquire(ctx, "project:9")
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLockerReleaseIdempotent(t *testing.T) {
	l := NewMemoryLocker(time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "invoice:INV-2")
	require.NoError(t, err)
	release()
	release()

	again, err := l.Acquire(ctx, "invoice:INV-2")
	require.NoError(t, err)
	again()
}
