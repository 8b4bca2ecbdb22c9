package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"estate-backend/internal/breaker"
)

// memLocker is an in-process Locker for tests
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (m *memLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memLocker) ReleaseLock(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

func TestRunOnceExecutesFirstCaller(t *testing.T) {
	g := NewWithLocker(newMemLocker(), breaker.NewDefault("test"))

	ran := false
	err := g.RunOnce(context.Background(), "lock:x", time.Minute, func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestRunOnceRejectsConcurrentDuplicate(t *testing.T) {
	locker := newMemLocker()
	g := NewWithLocker(locker, breaker.NewDefault("test"))
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	go g.RunOnce(ctx, "lock:x", time.Minute, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	err := g.RunOnce(ctx, "lock:x", time.Minute, func(ctx context.Context) error {
		t.Fatal("duplicate should not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	close(release)
}

func TestRunOnceReleasesAfterCompletion(t *testing.T) {
	g := NewWithLocker(newMemLocker(), breaker.NewDefault("test"))
	ctx := context.Background()

	assert.NoError(t, g.RunOnce(ctx, "lock:x", time.Minute, func(ctx context.Context) error { return nil }))
	// Same key is immediately available again
	assert.NoError(t, g.RunOnce(ctx, "lock:x", time.Minute, func(ctx context.Context) error { return nil }))
}

func TestRunOnceReleasesOnError(t *testing.T) {
	g := NewWithLocker(newMemLocker(), breaker.NewDefault("test"))
	ctx := context.Background()

	boom := errors.New("boom")
	err := g.RunOnce(ctx, "lock:x", time.Minute, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, g.RunOnce(ctx, "lock:x", time.Minute, func(ctx context.Context) error { return nil }))
}

func TestAcquireFailsClosedWhenLockerDown(t *testing.T) {
	locker := newMemLocker()
	locker.err = errors.New("connection refused")
	g := NewWithLocker(locker, breaker.NewDefault("test"))

	err := g.RunOnce(context.Background(), "lock:x", time.Minute, func(ctx context.Context) error {
		t.Fatal("must not run without the lock")
		return nil
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateRequest)
}

func TestPaymentLockKeyIsPerTenantPerCycle(t *testing.T) {
	cycle := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := PaymentLockKey(7, cycle)
	b := PaymentLockKey(8, cycle)
	c := PaymentLockKey(7, cycle.AddDate(0, 1, 0))

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "lock:rent-payment:7:2025-03-01", a)
}
