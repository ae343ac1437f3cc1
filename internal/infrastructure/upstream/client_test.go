package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

func TestClient_SessionNullUserIsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/session" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":null}`))
	}))
	defer srv.Close()

	user, err := NewClient(srv.URL).Session(context.Background())
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestClient_CookiePersistsAcrossCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "opaque-1", Path: "/"})
			_, _ = w.Write([]byte(`{"user":{"id":"1","role":"buyer"}}`))
		case "/api/auth/session":
			cookie, err := r.Cookie("sid")
			if err != nil || cookie.Value != "opaque-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"no session"}`))
				return
			}
			_, _ = w.Write([]byte(`{"user":{"id":"1","role":"buyer"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Login(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	user, err := client.Session(context.Background())
	if err != nil {
		t.Fatalf("session lookup after login failed: %v", err)
	}
	if user == nil || user.ID != "1" {
		t.Fatalf("session cookie did not persist: %+v", user)
	}
}

func TestClient_NonOKSurfacesServerMessageVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"location is required for seller accounts"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ExchangeGoogle(context.Background(), "tok", domain.RoleSeller, nil)
	if err == nil {
		t.Fatalf("expected rejection")
	}

	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if ae.Status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", ae.Status)
	}
	if ae.Error() != "location is required for seller accounts" {
		t.Fatalf("message not verbatim: %q", ae.Error())
	}
	if !domain.IsLocationRequired(err) {
		t.Fatalf("location failure not recognizable")
	}
}

func TestClient_ExchangeSendsNullLocation(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"user":{"id":"2","role":"buyer"},"isNewUser":true}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).ExchangeGoogle(context.Background(), "tok", domain.RoleBuyer, nil)
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if !res.IsNewUser || res.User.ID != "2" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if loc, present := body["location"]; !present || loc != nil {
		t.Fatalf("location must be an explicit null, got %v (present=%v)", loc, present)
	}
	if body["idToken"] != "tok" || body["role"] != "buyer" {
		t.Fatalf("unexpected payload: %v", body)
	}
}

func TestClient_RegisterOmitsEmptyOptionalFields(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"user":{"id":"3","role":"buyer"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Register(context.Background(), ports.RegisterInput{
		Name: "Bob", Email: "bob@x.com", Password: "pw123456", Role: domain.RoleBuyer,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, present := body["phone"]; present {
		t.Fatalf("empty phone must be omitted")
	}
	if _, present := body["location"]; present {
		t.Fatalf("empty location must be omitted")
	}
}

func TestClient_NetworkErrorIsNotAPIError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	err := client.Logout(context.Background())
	if err == nil {
		t.Fatalf("expected network error")
	}
	var ae *APIError
	if errors.As(err, &ae) {
		t.Fatalf("network failure must not masquerade as an API rejection")
	}
}
