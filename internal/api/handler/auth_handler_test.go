package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
	"github.com/connectmarket/session-gateway/internal/infrastructure/identity"
)

type stubStore struct {
	loginFn    func(ctx context.Context, email, password string) (*domain.User, error)
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	exchangeFn func(ctx context.Context, credential string, role domain.Role, location *string) (*ports.ExchangeResult, error)
	logoutFn   func(ctx context.Context) error
	snap       domain.Snapshot
}

func (s *stubStore) Bootstrap(context.Context) {}

func (s *stubStore) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubStore) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubStore) ExchangeGoogleCredential(ctx context.Context, credential string, role domain.Role, location *string) (*ports.ExchangeResult, error) {
	return s.exchangeFn(ctx, credential, role, location)
}

func (s *stubStore) Logout(ctx context.Context) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx)
	}
	return nil
}

func (s *stubStore) UpdateProfile(context.Context, ports.ProfileUpdate) (*domain.User, error) {
	return nil, errors.New("not stubbed")
}

func (s *stubStore) Snapshot() domain.Snapshot              { return s.snap }
func (s *stubStore) Subscribe(func(domain.Snapshot)) func() { return func() {} }

type okProvider struct{ onCredential func(string) }

func (p *okProvider) Load(context.Context) error { return nil }
func (p *okProvider) Initialize(_ string, cb func(string)) error {
	p.onCredential = cb
	return nil
}
func (p *okProvider) RenderButton(container ports.ButtonContainer, width int) error {
	container.Mount(identity.SignInControl{ClientID: "client-1", Width: width, Text: "Sign in with Google"})
	return nil
}
func (p *okProvider) Prompt() {}

func newHandler() *AuthHandler {
	bridge := identity.NewBridge(&okProvider{}, "client-1", zerolog.Nop())
	return NewAuthHandler(bridge, nil, zerolog.Nop())
}

func newAuthContext(t *testing.T, method, path, body string, store ports.SessionStore) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("session_store", store)
	return c, rec
}

func TestLogin_Success(t *testing.T) {
	store := &stubStore{
		loginFn: func(_ context.Context, email, password string) (*domain.User, error) {
			if email != "a@x.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.User{ID: "1", Email: email, Role: domain.RoleBuyer}, nil
		},
	}
	c, rec := newAuthContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"secret","surface":"buyer"}`, store)

	if err := newHandler().Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["redirect"] != "/buyer/dashboard" {
		t.Fatalf("unexpected redirect: %v", resp["redirect"])
	}
	if _, present := resp["notice"]; present {
		t.Fatalf("matching surface must not produce a notice")
	}
}

func TestLogin_CrossRoleMismatchRedirectsToActualDashboard(t *testing.T) {
	store := &stubStore{
		loginFn: func(context.Context, string, string) (*domain.User, error) {
			return &domain.User{ID: "1", Email: "a@x.com", Role: domain.RoleBuyer}, nil
		},
	}
	// Buyer credentials submitted on the seller login surface.
	c, rec := newAuthContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"secret","surface":"seller"}`, store)

	if err := newHandler().Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["redirect"] != "/buyer/dashboard" {
		t.Fatalf("mismatched login must redirect to the account's dashboard, got %v", resp["redirect"])
	}
	notice, _ := resp["notice"].(string)
	if notice == "" {
		t.Fatalf("mismatch must be communicated, not silently completed")
	}
	user, _ := resp["user"].(map[string]any)
	if user["role"] != "buyer" {
		t.Fatalf("stored role must be the server's: %v", user["role"])
	}
}

func TestLogin_ValidationRejectsBadPayload(t *testing.T) {
	store := &stubStore{
		loginFn: func(context.Context, string, string) (*domain.User, error) {
			t.Fatalf("store must not be reached")
			return nil, nil
		},
	}
	c, _ := newAuthContext(t, http.MethodPost, "/api/auth/login",
		`{"email":"not-an-email","password":"x"}`, store)

	err := newHandler().Login(c)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestRegister_SellerValidationErrorPropagates(t *testing.T) {
	store := &stubStore{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrPhoneRequired
		},
	}
	c, _ := newAuthContext(t, http.MethodPost, "/api/auth/register",
		`{"name":"Ann","email":"ann@x.com","password":"pw123456","role":"seller","location":"Gasabo"}`, store)

	err := newHandler().Register(c)
	if !errors.Is(err, domain.ErrPhoneRequired) {
		t.Fatalf("expected ErrPhoneRequired, got %v", err)
	}
}

func TestGoogle_LocationRequiredSurfacesForReplay(t *testing.T) {
	store := &stubStore{
		exchangeFn: func(_ context.Context, _ string, _ domain.Role, location *string) (*ports.ExchangeResult, error) {
			if location == nil {
				return nil, errors.New("location is required for seller accounts")
			}
			return &ports.ExchangeResult{
				User:      &domain.User{ID: "2", Role: domain.RoleSeller, Location: *location},
				IsNewUser: true,
			}, nil
		},
	}
	handler := newHandler()
	cred := mintTestCredential(t)

	c, _ := newAuthContext(t, http.MethodPost, "/api/auth/google",
		`{"idToken":"`+cred+`","role":"seller"}`, store)
	err := handler.Google(c)
	if err == nil || !domain.IsLocationRequired(err) {
		t.Fatalf("expected recognizable location failure, got %v", err)
	}

	c, rec := newAuthContext(t, http.MethodPost, "/api/auth/google",
		`{"idToken":"`+cred+`","role":"seller","location":"Gasabo"}`, store)
	if err := handler.Google(c); err != nil {
		t.Fatalf("replay with location failed: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["isNewUser"] != true {
		t.Fatalf("expected new-user flag: %v", resp)
	}
}

func TestLogout_ReportsSignedOutEvenOnUpstreamFailure(t *testing.T) {
	store := &stubStore{
		logoutFn: func(context.Context) error { return errors.New("connection reset") },
	}
	c, rec := newAuthContext(t, http.MethodPost, "/api/auth/logout", "", store)

	if err := newHandler().Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "signed out") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestGoogleButton_ReturnsRenderConfiguration(t *testing.T) {
	c, rec := newAuthContext(t, http.MethodGet, "/api/auth/google/button?width=800", "", &stubStore{})

	if err := newHandler().GoogleButton(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp googleButtonResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !resp.Available || resp.ClientID != "client-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Width != 400 {
		t.Fatalf("width not capped: %d", resp.Width)
	}
}

func mintTestCredential(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"aud":   "client-1",
		"email": "ann@x.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	return signed
}
