package ports

import (
	"context"

	"github.com/connectmarket/session-gateway/internal/core/domain"
)

// RegisterInput carries a new-account request. Phone and Location are
// required for sellers, optional for buyers.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Phone    string
	Location string
}

// ExchangeResult is the outcome of trading a federated credential for a
// session. IsNewUser tells callers whether to show first-time copy.
type ExchangeResult struct {
	User      *domain.User
	IsNewUser bool
}

// ProfileUpdate carries the mutable profile fields echoed back by the
// server on success.
type ProfileUpdate struct {
	Name     string
	Phone    string
	Location string
	Bio      string
}

// SessionAPI is the remote session API the gateway orchestrates. Session
// identity travels in an opaque cookie managed by the implementation; the
// gateway never reads or stores a token. Any non-2xx response surfaces as
// an error carrying the server's message verbatim.
type SessionAPI interface {
	// Session answers "who is logged in". A nil user with a nil error is a
	// legitimate anonymous visitor, not a failure.
	Session(ctx context.Context) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// ExchangeGoogle trades the provider credential plus the role the user
	// is attempting to assume for a session. Location may be nil; the
	// server demands it when registering a new seller.
	ExchangeGoogle(ctx context.Context, credential string, role domain.Role, location *string) (*ExchangeResult, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, in ProfileUpdate) (*domain.User, error)
}
