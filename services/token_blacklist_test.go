package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryTokenBlacklistRevoke(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	revoked, err := blacklist.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.False(t, revoked, "Unknown token should not be revoked")

	assert.NoError(t, blacklist.Revoke(ctx, "jti-1", time.Minute))

	revoked, err = blacklist.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.True(t, revoked)

	// Other tokens are unaffected
	revoked, err = blacklist.IsRevoked(ctx, "jti-2")
	assert.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklistExpiry(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	assert.NoError(t, blacklist.Revoke(ctx, "jti-1", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	revoked, err := blacklist.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.False(t, revoked, "Entry should expire with the token's own lifetime")
}

func TestInMemoryTokenBlacklistNonPositiveTTL(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	// An already-expired token needs no record
	assert.NoError(t, blacklist.Revoke(ctx, "jti-1", 0))
	assert.NoError(t, blacklist.Revoke(ctx, "jti-2", -time.Minute))

	revoked, err := blacklist.IsRevoked(ctx, "jti-1")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
