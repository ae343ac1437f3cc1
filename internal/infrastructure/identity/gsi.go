package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/connectmarket/session-gateway/internal/core/ports"
)

// DefaultScriptURL is the canonical Google Identity Services client source.
const DefaultScriptURL = "https://accounts.google.com/gsi/client"

const loadTimeout = 10 * time.Second

// SignInControl is what the GSI provider mounts into a container: the
// attributes a surface needs to render the official button.
type SignInControl struct {
	ClientID string
	Width    int
	Text     string
}

// GSIProvider is the production IdentityProvider. Load verifies the
// provider script source is reachable (the analog of a blocked third-party
// script is an unreachable source); Initialize binds the credential
// callback the /api/auth/google surface feeds.
type GSIProvider struct {
	scriptURL string
	http      *http.Client

	mu           sync.Mutex
	loaded       bool
	clientID     string
	onCredential func(string)
}

// NewGSIProvider builds a provider for the given script source. An empty
// scriptURL falls back to DefaultScriptURL.
func NewGSIProvider(scriptURL string, hc *http.Client) *GSIProvider {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: loadTimeout}
	}
	return &GSIProvider{scriptURL: scriptURL, http: hc}
}

func (p *GSIProvider) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("build script request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch identity script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity script source returned status %d", resp.StatusCode)
	}

	p.mu.Lock()
	p.loaded = true
	p.mu.Unlock()
	return nil
}

func (p *GSIProvider) Initialize(clientID string, onCredential func(string)) error {
	if clientID == "" {
		return errors.New("google client id is not configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return errors.New("identity provider script not loaded")
	}
	p.clientID = clientID
	p.onCredential = onCredential
	return nil
}

func (p *GSIProvider) RenderButton(container ports.ButtonContainer, width int) error {
	p.mu.Lock()
	clientID := p.clientID
	loaded := p.loaded
	p.mu.Unlock()
	if !loaded || clientID == "" {
		return errors.New("identity provider not initialized")
	}
	container.Mount(SignInControl{
		ClientID: clientID,
		Width:    width,
		Text:     "Sign in with Google",
	})
	return nil
}

// Prompt would trigger the one-tap surface; the gateway renders buttons
// only, so this is a no-op.
func (p *GSIProvider) Prompt() {}

// Deliver feeds a credential produced by the browser-side handshake into
// the registered callback. Callbacks with no credential are dropped by the
// bridge, not here.
func (p *GSIProvider) Deliver(credential string) {
	p.mu.Lock()
	cb := p.onCredential
	p.mu.Unlock()
	if cb != nil {
		cb(credential)
	}
}
