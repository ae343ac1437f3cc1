// Package identity isolates the Google Identity Services integration. The
// rest of the gateway only ever sees "got a credential string" or "got an
// error"; provider loading, initialization and teardown races stay here.
package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/connectmarket/session-gateway/internal/api/metrics"
	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

// maxButtonWidth caps the rendered button regardless of container size.
const maxButtonWidth = 400

// DisabledControl is the fallback rendered when the provider cannot load,
// so a surface always has something to mount instead of a silent gap.
type DisabledControl struct {
	Message string
}

// Bridge wraps an IdentityProvider with load coalescing, latched failure
// handling and per-button cancellation.
type Bridge struct {
	provider ports.IdentityProvider
	clientID string
	log      zerolog.Logger

	group singleflight.Group

	mu          sync.Mutex
	loaded      bool
	unavailable bool
}

// NewBridge wires a Bridge around the given provider and client ID.
func NewBridge(provider ports.IdentityProvider, clientID string, log zerolog.Logger) *Bridge {
	return &Bridge{provider: provider, clientID: clientID, log: log}
}

// ClientID returns the configured provider client identifier.
func (b *Bridge) ClientID() string { return b.clientID }

// EnsureLoaded makes the provider usable. Idempotent: once loaded it
// returns immediately, and concurrent callers coalesce into a single
// in-flight load rather than triggering duplicates. A failed load latches
// the bridge unavailable with one human-readable message, except when the
// failure was the caller's own context ending: the bridge is shared by
// every visitor, and a torn-down caller must not decide provider health
// for the rest. Such loads simply fail for that caller and the next one
// retries fresh.
func (b *Bridge) EnsureLoaded(ctx context.Context) error {
	b.mu.Lock()
	if b.loaded {
		b.mu.Unlock()
		return nil
	}
	if b.unavailable {
		b.mu.Unlock()
		return domain.ErrProviderUnavailable
	}
	b.mu.Unlock()

	_, err, _ := b.group.Do("load", func() (any, error) {
		if err := b.provider.Load(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		b.unavailable = true
		b.log.Error().Err(err).Msg("identity provider failed to load")
		metrics.ProviderLoadFailures.Inc()
		return domain.ErrProviderUnavailable
	}
	b.loaded = true
	return nil
}

// Unavailable reports whether the bridge has latched a load failure, and
// the message surfaces should display.
func (b *Bridge) Unavailable() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unavailable {
		return domain.ErrProviderUnavailable.Error(), true
	}
	return "", false
}

// ButtonHandle cancels a mounted button. After Close, provider callbacks
// for this button are dropped before they can touch the owning surface.
type ButtonHandle struct {
	closed atomic.Bool
}

// Close marks the owning surface as torn down.
func (h *ButtonHandle) Close() {
	h.closed.Store(true)
}

// AttachButton loads the provider if needed and renders its sign-in button
// into container. Previously rendered content is cleared first, so the call
// is idempotent across remounts. onCredential fires only for non-empty
// credentials and only while the returned handle is open; a load or
// initialization failure mounts a disabled fallback instead of failing the
// surface.
func (b *Bridge) AttachButton(ctx context.Context, container ports.ButtonContainer, onCredential func(credential string)) (*ButtonHandle, error) {
	handle := &ButtonHandle{}

	if err := b.EnsureLoaded(ctx); err != nil {
		b.mountFallback(container, handle)
		return handle, err
	}
	if handle.closed.Load() || ctx.Err() != nil {
		return handle, ctx.Err()
	}

	err := b.provider.Initialize(b.clientID, func(credential string) {
		if handle.closed.Load() {
			return
		}
		if credential == "" {
			// Dismissed account chooser. Not an error.
			return
		}
		onCredential(credential)
	})
	if err != nil {
		b.mu.Lock()
		b.unavailable = true
		b.mu.Unlock()
		b.log.Error().Err(err).Msg("identity provider initialization failed")
		b.mountFallback(container, handle)
		return handle, domain.ErrProviderUnavailable
	}

	width := container.Width()
	if width > maxButtonWidth || width <= 0 {
		width = maxButtonWidth
	}
	container.Clear()
	if err := b.provider.RenderButton(container, width); err != nil {
		b.log.Error().Err(err).Msg("identity provider button render failed")
		b.mountFallback(container, handle)
		return handle, domain.ErrProviderUnavailable
	}
	return handle, nil
}

// Prompt triggers the provider's one-tap surface when the provider is
// loaded; otherwise it does nothing.
func (b *Bridge) Prompt() {
	b.mu.Lock()
	loaded := b.loaded
	b.mu.Unlock()
	if loaded {
		b.provider.Prompt()
	}
}

func (b *Bridge) mountFallback(container ports.ButtonContainer, handle *ButtonHandle) {
	if handle.closed.Load() {
		return
	}
	container.Clear()
	container.Mount(DisabledControl{Message: domain.ErrProviderUnavailable.Error()})
}
