// Package upstream implements the HTTP client for the remote session API.
// Session identity is carried by an opaque cookie held in the client's jar;
// no token is ever parsed or stored. Non-2xx responses surface as *APIError
// whose message is the raw response body text — callers pattern-match on
// substrings, so the server's error text is part of the contract.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the session API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.Status)
	}
	return e.Body
}

// Client talks to the remote session API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client. The provided
// client should carry a cookie jar if session continuity matters.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a Client rooted at baseURL with a fresh cookie jar.
func NewClient(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type userEnvelope struct {
	User *domain.User `json:"user"`
}

type exchangeEnvelope struct {
	User      *domain.User `json:"user"`
	IsNewUser bool         `json:"isNewUser"`
}

// Session implements GET /api/auth/session. A null user means an anonymous
// visitor and is not an error.
func (c *Client) Session(ctx context.Context) (*domain.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// Login implements POST /api/auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	body := map[string]string{"email": email, "password": password}
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// Register implements POST /api/auth/register. The server establishes a
// session on success, so register implies login.
func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	body := map[string]any{
		"name":     in.Name,
		"email":    in.Email,
		"password": in.Password,
		"role":     in.Role,
	}
	if in.Phone != "" {
		body["phone"] = in.Phone
	}
	if in.Location != "" {
		body["location"] = in.Location
	}
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// ExchangeGoogle implements POST /api/auth/google. Location is sent as an
// explicit null when absent; the server rejects new seller accounts without
// one using a message containing "location is required".
func (c *Client) ExchangeGoogle(ctx context.Context, credential string, role domain.Role, location *string) (*ports.ExchangeResult, error) {
	body := map[string]any{
		"idToken":  credential,
		"role":     role,
		"location": location,
	}
	var env exchangeEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/auth/google", body, &env); err != nil {
		return nil, err
	}
	return &ports.ExchangeResult{User: env.User, IsNewUser: env.IsNewUser}, nil
}

// Logout implements POST /api/auth/logout. The response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// UpdateProfile implements PUT /api/users/profile and returns the server's
// echoed record.
func (c *Client) UpdateProfile(ctx context.Context, in ports.ProfileUpdate) (*domain.User, error) {
	body := map[string]string{
		"name":     in.Name,
		"phone":    in.Phone,
		"location": in.Location,
		"bio":      in.Bio,
	}
	var env userEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/users/profile", body, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(decodeErrorBody(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeErrorBody unwraps the {"error": "..."} envelope the API uses for
// failures, falling back to the raw text for plain bodies.
func decodeErrorBody(raw []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return string(raw)
}
