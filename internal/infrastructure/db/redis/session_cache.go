package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connectmarket/session-gateway/internal/core/domain"
)

const defaultSessionTTL = 30 * time.Second

// SessionCache holds recent session-lookup answers so repeated lookups for
// the same visitor skip the upstream round trip. Entries are short-lived;
// a stale positive is bounded by the TTL and every mutation invalidates.
// Key format: session:<visitor_id>
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a SessionCache wrapping the given Redis client.
// If ttl <= 0, defaultSessionTTL is used.
func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionCache{client: client, ttl: ttl}
}

// cachedSession distinguishes "cached anonymous" from "not cached".
type cachedSession struct {
	User *domain.User `json:"user"`
}

// Get returns the cached lookup answer for a visitor. ok is false on a
// cache miss or any Redis failure; callers fall through to the upstream.
func (c *SessionCache) Get(ctx context.Context, visitorID string) (*domain.User, bool) {
	raw, err := c.client.Get(ctx, c.key(visitorID)).Bytes()
	if err != nil {
		return nil, false
	}
	var entry cachedSession
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return entry.User, true
}

// Put records a lookup answer, including the anonymous one.
func (c *SessionCache) Put(ctx context.Context, visitorID string, user *domain.User) error {
	raw, err := json.Marshal(cachedSession{User: user})
	if err != nil {
		return fmt.Errorf("encode session cache entry: %w", err)
	}
	return c.client.Set(ctx, c.key(visitorID), raw, c.ttl).Err()
}

// Invalidate drops the cached answer after any session-mutating operation.
func (c *SessionCache) Invalidate(ctx context.Context, visitorID string) error {
	return c.client.Del(ctx, c.key(visitorID)).Err()
}

func (c *SessionCache) key(visitorID string) string {
	return "session:" + visitorID
}
