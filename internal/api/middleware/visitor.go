package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/core/ports"
)

const (
	// VisitorCookie identifies one browser's gateway session. The cookie
	// is the gateway's own; the upstream session cookie lives in the
	// visitor's dedicated HTTP client jar.
	VisitorCookie = "cg_visitor"

	storeContextKey = "session_store"

	defaultVisitorTTL = 30 * time.Minute
	janitorInterval   = time.Minute
)

type visitorEntry struct {
	store    ports.SessionStore
	lastSeen time.Time
}

// VisitorRegistry maps visitor IDs to their session stores. Each store is
// one instance of the session state machine: bootstrap once, then settled.
type VisitorRegistry struct {
	factory func(visitorID string) ports.SessionStore
	ttl     time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	entries map[string]*visitorEntry
}

// NewVisitorRegistry builds a registry. factory creates the per-visitor
// store; ttl bounds how long an idle store survives (<= 0 uses the default).
func NewVisitorRegistry(factory func(visitorID string) ports.SessionStore, ttl time.Duration, log zerolog.Logger) *VisitorRegistry {
	if ttl <= 0 {
		ttl = defaultVisitorTTL
	}
	return &VisitorRegistry{
		factory: factory,
		ttl:     ttl,
		log:     log,
		entries: make(map[string]*visitorEntry),
	}
}

// Middleware attaches the visitor's store to the request context, minting
// the visitor cookie on first contact. A freshly created store starts its
// bootstrap in the background so the loading window closes promptly.
func (r *VisitorRegistry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := r.visitorID(c)
			store, created := r.lookup(id)
			if created {
				go store.Bootstrap(context.Background())
			}
			c.Set(storeContextKey, store)
			return next(c)
		}
	}
}

// StoreFrom extracts the visitor's store from the request context.
func StoreFrom(c echo.Context) (ports.SessionStore, error) {
	store, ok := c.Get(storeContextKey).(ports.SessionStore)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "visitor session missing")
	}
	return store, nil
}

// StartJanitor evicts idle visitors until ctx is cancelled.
func (r *VisitorRegistry) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.evictIdle()
			}
		}
	}()
}

func (r *VisitorRegistry) visitorID(c echo.Context) string {
	if cookie, err := c.Cookie(VisitorCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (r *VisitorRegistry) lookup(id string) (ports.SessionStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[id]; ok {
		entry.lastSeen = time.Now()
		return entry.store, false
	}

	store := r.factory(id)
	r.entries[id] = &visitorEntry{store: store, lastSeen: time.Now()}
	return store, true
}

func (r *VisitorRegistry) evictIdle() {
	cutoff := time.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}

// Len reports the number of live visitor stores.
func (r *VisitorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
