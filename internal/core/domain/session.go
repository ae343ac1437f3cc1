package domain

import (
	"errors"
	"strings"
)

// Snapshot is an immutable view of the session state at one instant.
// Loading is true only during the window between store creation and the
// first session lookup settling; code gating on authentication must never
// treat loading as synonymous with anonymous.
type Snapshot struct {
	User    *User
	Role    Role
	Loading bool
}

// Authenticated reports whether a user is cached. False while loading.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("name is required")
	ErrPhoneRequired    = errors.New("phone is required for sellers")
	ErrLocationRequired = errors.New("location is required")

	// ErrOperationInFlight rejects a session-mutating call issued while a
	// prior login/register/exchange is still pending, so a slow earlier
	// request can never clobber the result of a faster later one.
	ErrOperationInFlight = errors.New("another sign-in operation is in progress")

	// ErrCredentialEmpty marks a provider callback that carried no
	// credential; bridges treat it as a silent no-op.
	ErrCredentialEmpty = errors.New("identity provider returned an empty credential")

	// ErrProviderUnavailable is the single human-readable failure the
	// identity bridge exposes when the provider cannot be loaded.
	ErrProviderUnavailable = errors.New("Google sign-in is unavailable right now")
)

// IsLocationRequired reports whether the server rejected a Google exchange
// because the account being created needs a location. The server's error
// text is part of the contract; callers re-prompt and replay the same
// credential instead of treating this as fatal.
func IsLocationRequired(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLocationRequired) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "location is required")
}
