package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CustomerViewCache caches the rendered customer detail payload (customer
// plus measurement sets). Status updates, edits and deletes invalidate the
// entry so the next read rebuilds it from the store.
type CustomerViewCache interface {
	// GetCustomerDetail returns the cached payload and whether it was found
	GetCustomerDetail(ctx context.Context, customerID uint) ([]byte, bool, error)

	// SetCustomerDetail stores the payload with the given TTL
	SetCustomerDetail(ctx context.Context, customerID uint, payload []byte, ttl time.Duration) error

	// InvalidateCustomer drops the cached payload for a customer
	InvalidateCustomer(ctx context.Context, customerID uint) error
}

// RedisCustomerViewCache implements CustomerViewCache using Redis
type RedisCustomerViewCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCustomerViewCache creates a Redis-backed customer view cache
func NewRedisCustomerViewCache(client *redis.Client) *RedisCustomerViewCache {
	return &RedisCustomerViewCache{
		client:    client,
		keyPrefix: "customer:detail:",
	}
}

func (c *RedisCustomerViewCache) key(customerID uint) string {
	return fmt.Sprintf("%s%d", c.keyPrefix, customerID)
}

// GetCustomerDetail returns the cached payload and whether it was found
func (c *RedisCustomerViewCache) GetCustomerDetail(ctx context.Context, customerID uint) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, c.key(customerID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read customer view cache: %w", err)
	}
	return payload, true, nil
}

// SetCustomerDetail stores the payload with the given TTL
func (c *RedisCustomerViewCache) SetCustomerDetail(ctx context.Context, customerID uint, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(customerID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write customer view cache: %w", err)
	}
	return nil
}

// InvalidateCustomer drops the cached payload for a customer
func (c *RedisCustomerViewCache) InvalidateCustomer(ctx context.Context, customerID uint) error {
	if err := c.client.Del(ctx, c.key(customerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate customer view cache: %w", err)
	}
	return nil
}

type inMemoryViewEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryCustomerViewCache implements CustomerViewCache with a process-local
// map. Used in tests and single-instance deployments without Redis.
type InMemoryCustomerViewCache struct {
	mu      sync.RWMutex
	entries map[uint]inMemoryViewEntry
}

// NewInMemoryCustomerViewCache creates an in-memory customer view cache
func NewInMemoryCustomerViewCache() *InMemoryCustomerViewCache {
	return &InMemoryCustomerViewCache{
		entries: make(map[uint]inMemoryViewEntry),
	}
}

// GetCustomerDetail returns the cached payload and whether it was found
func (c *InMemoryCustomerViewCache) GetCustomerDetail(ctx context.Context, customerID uint) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[customerID]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, customerID)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.payload, true, nil
}

// SetCustomerDetail stores the payload with the given TTL
func (c *InMemoryCustomerViewCache) SetCustomerDetail(ctx context.Context, customerID uint, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[customerID] = inMemoryViewEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// InvalidateCustomer drops the cached payload for a customer
func (c *InMemoryCustomerViewCache) InvalidateCustomer(ctx context.Context, customerID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, customerID)
	return nil
}
