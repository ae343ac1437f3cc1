package ports

import "context"

// ButtonContainer is the slot a provider button is rendered into. Width is
// consulted for sizing; Clear removes any previously rendered content so a
// re-render never stacks controls.
type ButtonContainer interface {
	Width() int
	Clear()
	Mount(control any)
}

// IdentityProvider is the adapter over the third-party identity surface.
// All direct interaction with the provider lives behind this interface so
// the bridge can be exercised against a fake in tests.
type IdentityProvider interface {
	// Load makes the provider usable. Implementations may perform network
	// fetches; callers coalesce concurrent loads.
	Load(ctx context.Context) error
	// Initialize binds the configured client ID and the credential
	// callback. The callback may fire with an empty credential when the
	// user dismisses the account chooser.
	Initialize(clientID string, onCredential func(credential string)) error
	// RenderButton draws the provider's sign-in button into the container
	// at the given width.
	RenderButton(container ButtonContainer, width int) error
	// Prompt triggers the provider's one-tap surface. Optional; failures
	// are silent.
	Prompt()
}
