package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist records revoked token IDs until their natural expiry.
// Sign-out revokes the token's jti; the auth middleware rejects any
// blacklisted token even though its signature is still valid.
type TokenBlacklist interface {
	// Revoke marks a token ID as revoked for the given TTL
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked checks whether a token ID has been revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisTokenBlacklist implements TokenBlacklist using Redis.
// Suitable for deployments where multiple instances share revocation state.
type RedisTokenBlacklist struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenBlacklist creates a Redis-backed token blacklist
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{
		client:    client,
		keyPrefix: "auth:revoked:",
	}
}

// Revoke marks a token ID as revoked with a TTL matching its remaining lifetime
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired, nothing to record
		return nil
	}
	if err := b.client.Set(ctx, b.keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks whether a token ID has been revoked
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, b.keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists > 0, nil
}

// InMemoryTokenBlacklist implements TokenBlacklist with a process-local map.
// Used in tests and single-instance deployments without Redis.
type InMemoryTokenBlacklist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> expiry
}

// NewInMemoryTokenBlacklist creates an in-memory token blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		revoked: make(map[string]time.Time),
	}
}

// Revoke marks a token ID as revoked until now+ttl
func (b *InMemoryTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked checks whether a token ID has been revoked and prunes expired entries
func (b *InMemoryTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.revoked, jti)
		return false, nil
	}
	return true, nil
}
