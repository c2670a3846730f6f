package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/palengke-dev/farmgate-api/internal/lock"
)

func newLocker(t *testing.T) lock.Locker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, Retry: 5 * time.Millisecond, MaxWait: time.Second}
}

func TestWithLockSerializes(t *testing.T) {
	locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var order []string
	firstRunning := make(chan struct{})
	releaseFirst := make(chan struct{})
	done := make(chan struct{}, 2)

	go func() {
		err := locker.WithLock(ctx, "allocate", 500*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstRunning)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
		done <- struct{}{}
	}()

	<-firstRunning
	go func() {
		err := locker.WithLock(ctx, "allocate", 500*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		done <- struct{}{}
	}()

	time.Sleep(20 * time.Millisecond)
	close(releaseFirst)
	<-done
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockWaitBudget(t *testing.T) {
	locker := newLocker(t)
	locker.MaxWait = 30 * time.Millisecond
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithLock(ctx, "busy", time.Second, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	err := locker.WithLock(ctx, "busy", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestWithLockReleasedAfterError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	wantErr := context.DeadlineExceeded
	err := locker.WithLock(ctx, "flaky", time.Second, func(context.Context) error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	// The key must be free again immediately, not only after TTL expiry.
	err = locker.WithLock(ctx, "flaky", time.Second, func(context.Context) error { return nil })
	require.NoError(t, err)
}
