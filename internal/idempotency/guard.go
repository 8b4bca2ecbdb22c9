package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"estate-backend/internal/breaker"
	"estate-backend/internal/cache"
)

// ErrDuplicateRequest is returned when another caller already holds the key
var ErrDuplicateRequest = errors.New("duplicate request already in progress")

// Locker is the distributed lock surface the guard needs
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string)
}

// redisLocker adapts the cache package to the Locker interface
type redisLocker struct{}

func (redisLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return cache.AcquireLock(ctx, key, ttl)
}

func (redisLocker) ReleaseLock(ctx context.Context, key string) {
	cache.ReleaseLock(ctx, key)
}

// Guard suppresses duplicate execution of critical sections across replicas
// using SET NX locks. Lock acquisition runs through a circuit breaker so a
// down Redis fails fast instead of hanging every payment request.
type Guard struct {
	locker Locker
	cb     *breaker.CircuitBreaker
}

// New builds a guard on the shared Redis client
func New(cb *breaker.CircuitBreaker) *Guard {
	return &Guard{locker: redisLocker{}, cb: cb}
}

// NewWithLocker builds a guard with an explicit locker
func NewWithLocker(locker Locker, cb *breaker.CircuitBreaker) *Guard {
	return &Guard{locker: locker, cb: cb}
}

// Acquire takes the key for ttl. Returns ErrDuplicateRequest when another
// holder exists. Lock-service failures are returned as-is: duplicate
// suppression fails closed rather than risking double charges.
func (g *Guard) Acquire(ctx context.Context, key string, ttl time.Duration) error {
	var ok bool
	err := g.cb.Execute(ctx, "idempotency.acquire", func(ctx context.Context) error {
		var acqErr error
		ok, acqErr = g.locker.AcquireLock(ctx, key, ttl)
		return acqErr
	})
	if err != nil {
		return fmt.Errorf("idempotency lock unavailable: %w", err)
	}
	if !ok {
		return ErrDuplicateRequest
	}
	return nil
}

// Release drops the key. Best effort: the TTL bounds the window either way.
func (g *Guard) Release(ctx context.Context, key string) {
	g.locker.ReleaseLock(ctx, key)
}

// RunOnce executes fn only if the key was free. The lock is released when fn
// completes; if the process dies mid-flight the TTL bounds the suppression
// window.
func (g *Guard) RunOnce(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx, key, ttl); err != nil {
		return err
	}
	defer g.Release(ctx, key)
	return fn(ctx)
}

// PaymentLockKey scopes payment-creation locks to one tenant and rent cycle,
// so concurrent tenants never contend on a shared key.
func PaymentLockKey(tenantID int64, cycleStart time.Time) string {
	return fmt.Sprintf("lock:rent-payment:%d:%s", tenantID, cycleStart.Format("2006-01-02"))
}

// ProofLockKey scopes proof-approval locks to a single proof
func ProofLockKey(proofID int64) string {
	return fmt.Sprintf("lock:proof-approval:%d", proofID)
}

// PayoutLockKey scopes payout processing to a single payment
func PayoutLockKey(paymentID int64) string {
	return fmt.Sprintf("lock:auto-payout:%d", paymentID)
}
