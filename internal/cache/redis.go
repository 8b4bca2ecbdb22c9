package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event channels published on payment lifecycle changes
const (
	ChannelPaymentCompleted = "payment.completed"
	ChannelPaymentRefunded  = "payment.refunded"
	ChannelReceiptFinalized = "receipt.finalized"
)

var client *redis.Client

// Init initializes the Redis connection
func Init(addr, password string, db int) error {
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client (nil when Redis is down)
func GetClient() *redis.Client {
	return client
}

// ============================================
// Distributed Locks
// ============================================

// AcquireLock attempts SET NX with a TTL. Returns true only for the first
// caller within the TTL window. Errors are returned so callers can decide
// whether to fail open or closed.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if client == nil {
		return false, redis.ErrClosed
	}
	return client.SetNX(ctx, key, 1, ttl).Result()
}

// ReleaseLock deletes a lock key. Safe to call when the key already expired.
func ReleaseLock(ctx context.Context, key string) {
	if client == nil {
		return
	}
	client.Del(ctx, key)
}

// ============================================
// Pub/Sub Events
// ============================================

// PublishEvent marshals payload to JSON and publishes it on a channel.
// Events are best-effort: a down Redis drops them silently.
func PublishEvent(ctx context.Context, channel string, payload interface{}) {
	if client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Cache] Failed to marshal event for %s: %v", channel, err)
		return
	}
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[Cache] Failed to publish on %s: %v", channel, err)
	}
}

// ============================================
// Generic Cache Functions
// ============================================

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// ============================================
// Entity-Based Cache Invalidators
// ============================================

// InvalidateTenantCaches clears tenant listing caches.
// Called when: CreateTenant, UpdateTenant, rent renewal, deactivation
func InvalidateTenantCaches(ctx context.Context, tenantID int64) {
	InvalidatePattern(ctx, "tenants:*")
	InvalidatePattern(ctx, fmt.Sprintf("tenant:%d:*", tenantID))
}

// InvalidatePaymentCaches clears payment and receipt caches.
// Called when: payment verified, receipt reconciled, proof approved
func InvalidatePaymentCaches(ctx context.Context, tenantID int64) {
	InvalidatePattern(ctx, fmt.Sprintf("payments:%d:*", tenantID))
	InvalidatePattern(ctx, fmt.Sprintf("receipts:%d:*", tenantID))
}

// InvalidatePropertyCaches clears property listing caches.
// Called when: CreateProperty, UpdateProperty, tenant assignment
func InvalidatePropertyCaches(ctx context.Context) {
	InvalidatePattern(ctx, "properties:*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
