package upstream

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/api/metrics"
	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

// SessionCache is the subset of the Redis cache the decorator needs.
type SessionCache interface {
	Get(ctx context.Context, visitorID string) (*domain.User, bool)
	Put(ctx context.Context, visitorID string, user *domain.User) error
	Invalidate(ctx context.Context, visitorID string) error
}

// CachedClient decorates a SessionAPI with a read-through cache on the
// session lookup. Every mutating operation invalidates before delegating,
// so a cached answer can never survive a sign-in or sign-out. Cache
// failures degrade to the upstream call, never to an error.
type CachedClient struct {
	inner     ports.SessionAPI
	cache     SessionCache
	visitorID string
	log       zerolog.Logger
}

// NewCachedClient wraps inner for one visitor.
func NewCachedClient(inner ports.SessionAPI, cache SessionCache, visitorID string, log zerolog.Logger) *CachedClient {
	return &CachedClient{inner: inner, cache: cache, visitorID: visitorID, log: log}
}

func (c *CachedClient) Session(ctx context.Context) (*domain.User, error) {
	if user, ok := c.cache.Get(ctx, c.visitorID); ok {
		metrics.SessionCacheTotal.WithLabelValues("hit").Inc()
		return user, nil
	}
	metrics.SessionCacheTotal.WithLabelValues("miss").Inc()

	user, err := c.inner.Session(ctx)
	if err != nil {
		return nil, err
	}
	if cacheErr := c.cache.Put(ctx, c.visitorID, user); cacheErr != nil {
		c.log.Warn().Err(cacheErr).Msg("session cache write failed")
	}
	return user, nil
}

func (c *CachedClient) Login(ctx context.Context, email, password string) (*domain.User, error) {
	c.invalidate(ctx)
	return c.inner.Login(ctx, email, password)
}

func (c *CachedClient) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	c.invalidate(ctx)
	return c.inner.Register(ctx, in)
}

func (c *CachedClient) ExchangeGoogle(ctx context.Context, credential string, role domain.Role, location *string) (*ports.ExchangeResult, error) {
	c.invalidate(ctx)
	return c.inner.ExchangeGoogle(ctx, credential, role, location)
}

func (c *CachedClient) Logout(ctx context.Context) error {
	c.invalidate(ctx)
	return c.inner.Logout(ctx)
}

func (c *CachedClient) UpdateProfile(ctx context.Context, in ports.ProfileUpdate) (*domain.User, error) {
	c.invalidate(ctx)
	return c.inner.UpdateProfile(ctx, in)
}

func (c *CachedClient) invalidate(ctx context.Context) {
	if err := c.cache.Invalidate(ctx, c.visitorID); err != nil {
		c.log.Warn().Err(err).Msg("session cache invalidation failed")
	}
}
