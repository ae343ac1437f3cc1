package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/api/metrics"
	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

// SessionStore is the single source of truth for one visitor's identity.
// The user record is replaced wholesale by server echoes and never merged
// or synthesized locally; role is always derived from the user, never
// cached independently.
type SessionStore struct {
	api   ports.SessionAPI
	audit ports.AuditSink
	log   zerolog.Logger

	mu       sync.Mutex
	user     *domain.User
	loading  bool
	inFlight bool
	subs     map[int]func(domain.Snapshot)
	nextSub  int

	bootstrapOnce sync.Once
	bootstrapped  chan struct{}
}

// NewSessionStore builds a store in the loading state. audit may be nil.
func NewSessionStore(api ports.SessionAPI, audit ports.AuditSink, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		api:          api,
		audit:        audit,
		log:          log,
		loading:      true,
		subs:         make(map[int]func(domain.Snapshot)),
		bootstrapped: make(chan struct{}),
	}
}

// Bootstrap resolves the initial session state. The lookup runs at most
// once per store; concurrent and repeat callers block until it settles.
// Any failure degrades to anonymous — a session check must never block the
// visitor on transient trouble — and the loading flag clears exactly once.
func (s *SessionStore) Bootstrap(ctx context.Context) {
	s.bootstrapOnce.Do(func() {
		defer close(s.bootstrapped)

		user, err := s.api.Session(ctx)
		outcome := "authenticated"
		if err != nil {
			s.log.Warn().Err(err).Msg("session lookup failed, treating visitor as anonymous")
			user = nil
			outcome = "error"
		} else if user == nil {
			outcome = "anonymous"
		}
		metrics.BootstrapTotal.WithLabelValues(outcome).Inc()

		s.mu.Lock()
		s.user = user
		s.loading = false
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	})

	select {
	case <-s.bootstrapped:
	case <-ctx.Done():
	}
}

// Login authenticates with email and password. The server's rejection
// message propagates verbatim for the entry surface to display.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	if password == "" {
		return nil, domain.ErrPasswordRequired
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	user, err := s.api.Login(ctx, email, password)
	s.recordAudit(ctx, domain.AuditLogin, user, email, err)
	metrics.ObserveAuthOp("login", err)
	if err != nil {
		return nil, err
	}

	s.replaceUser(user)
	return user, nil
}

// Register creates an account and, because the server establishes a session
// on success, signs the visitor in. Seller accounts require phone and
// location before any request leaves the gateway.
func (s *SessionStore) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Name == "" {
		return nil, domain.ErrNameRequired
	}
	if in.Email == "" {
		return nil, domain.ErrEmailRequired
	}
	if in.Password == "" {
		return nil, domain.ErrPasswordRequired
	}
	if in.Role == domain.RoleSeller {
		if in.Phone == "" {
			return nil, domain.ErrPhoneRequired
		}
		if in.Location == "" {
			return nil, domain.ErrLocationRequired
		}
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	user, err := s.api.Register(ctx, in)
	s.recordAudit(ctx, domain.AuditRegister, user, in.Email, err)
	metrics.ObserveAuthOp("register", err)
	if err != nil {
		return nil, err
	}

	s.replaceUser(user)
	return user, nil
}

// ExchangeGoogleCredential trades a federated credential for a session.
// A rejection whose message contains "location is required" is not fatal:
// the caller collects the field and replays the same credential.
func (s *SessionStore) ExchangeGoogleCredential(ctx context.Context, credential string, role domain.Role, location *string) (*ports.ExchangeResult, error) {
	if credential == "" {
		return nil, domain.ErrCredentialEmpty
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	res, err := s.api.ExchangeGoogle(ctx, credential, role, location)
	var user *domain.User
	if res != nil {
		user = res.User
	}
	s.recordAudit(ctx, domain.AuditGoogleAuth, user, "", err)
	metrics.ObserveAuthOp("google_exchange", err)
	if err != nil {
		return nil, err
	}

	s.replaceUser(res.User)
	return res, nil
}

// Logout tears down the session. The cached user clears even when the
// network call fails: a dead session must never leave the visitor stranded
// in an authenticated-looking state.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.user
	s.mu.Unlock()

	err := s.api.Logout(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("logout request failed, clearing local session anyway")
	}
	s.recordAudit(ctx, domain.AuditLogout, prev, "", err)
	metrics.ObserveAuthOp("logout", err)

	s.replaceUser(nil)
	return err
}

// UpdateProfile sends the profile mutation and replaces the cached user
// with the server's echoed record. It mutates the user like the sign-in
// operations do, so it holds the same in-flight slot: a slow update cannot
// interleave with a concurrent sign-in and clobber its echoed user.
func (s *SessionStore) UpdateProfile(ctx context.Context, in ports.ProfileUpdate) (*domain.User, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	user, err := s.api.UpdateProfile(ctx, in)
	if err != nil {
		return nil, err
	}
	s.replaceUser(user)
	return user, nil
}

// Snapshot returns an immutable copy of the current state.
func (s *SessionStore) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers an observer invoked after every state change with the
// new snapshot. The returned function removes the observer.
func (s *SessionStore) Subscribe(fn func(domain.Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// acquire claims the single mutating-operation slot. Overlapping
// session-mutating calls are rejected rather than serialized so the caller
// gets an immediate, explicit answer.
func (s *SessionStore) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return domain.ErrOperationInFlight
	}
	s.inFlight = true
	return nil
}

func (s *SessionStore) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *SessionStore) replaceUser(u *domain.User) {
	s.mu.Lock()
	if u != nil {
		clone := *u
		s.user = &clone
	} else {
		s.user = nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// snapshotLocked must be called with mu held. The user is copied so
// observers can never reach back into store-owned state.
func (s *SessionStore) snapshotLocked() domain.Snapshot {
	var u *domain.User
	if s.user != nil {
		clone := *s.user
		u = &clone
	}
	return domain.Snapshot{
		User:    u,
		Role:    domain.EffectiveRole(s.user),
		Loading: s.loading,
	}
}

func (s *SessionStore) notify(snap domain.Snapshot) {
	s.mu.Lock()
	fns := make([]func(domain.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *SessionStore) recordAudit(ctx context.Context, action domain.AuditAction, user *domain.User, email string, opErr error) {
	if s.audit == nil {
		return
	}
	ev := domain.AuditEvent{
		Action:    action,
		Email:     email,
		Succeeded: opErr == nil,
		At:        time.Now().UTC(),
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Email = user.Email
		ev.Role = domain.EffectiveRole(user)
	}
	if opErr != nil {
		ev.Detail = opErr.Error()
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("action", string(action)).Msg("audit write failed")
	}
}
