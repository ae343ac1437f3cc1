package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintCredential(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	return signed
}

func TestDecodeCredential_ReadsClaims(t *testing.T) {
	cred := mintCredential(t, jwt.MapClaims{
		"sub":     "108123",
		"aud":     "client-1",
		"email":   "ann@x.com",
		"name":    "Ann",
		"picture": "https://example.com/a.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := DecodeCredential(cred, "client-1")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if claims.Subject != "108123" || claims.Email != "ann@x.com" || claims.Name != "Ann" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestDecodeCredential_RejectsForeignAudience(t *testing.T) {
	cred := mintCredential(t, jwt.MapClaims{
		"aud": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := DecodeCredential(cred, "client-1"); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestDecodeCredential_RejectsExpired(t *testing.T) {
	cred := mintCredential(t, jwt.MapClaims{
		"aud": "client-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := DecodeCredential(cred, "client-1"); !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestDecodeCredential_RejectsGarbage(t *testing.T) {
	if _, err := DecodeCredential("not-a-jwt", "client-1"); err == nil {
		t.Fatalf("expected parse failure")
	}
}
