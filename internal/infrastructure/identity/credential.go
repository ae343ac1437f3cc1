package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrAudienceMismatch  = errors.New("credential was issued for a different client")
	ErrCredentialExpired = errors.New("credential has expired")
)

// CredentialClaims is the subset of the Google ID token the gateway reads.
// The credential is otherwise opaque: cryptographic verification belongs to
// the session API, which exchanges it server-side.
type CredentialClaims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// DecodeCredential parses the credential without verifying its signature
// and rejects tokens that were minted for another client or have already
// expired. Used for pre-flight checks and account hints only.
func DecodeCredential(credential, clientID string) (*CredentialClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(credential, claims); err != nil {
		return nil, fmt.Errorf("malformed credential: %w", err)
	}

	if aud, _ := claims.GetAudience(); len(aud) > 0 && clientID != "" {
		matched := false
		for _, a := range aud {
			if a == clientID {
				matched = true
				break
			}
		}
		if !matched {
			return nil, ErrAudienceMismatch
		}
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if exp.Before(time.Now()) {
			return nil, ErrCredentialExpired
		}
	}

	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	sub, _ := claims.GetSubject()
	return &CredentialClaims{
		Subject: sub,
		Email:   str("email"),
		Name:    str("name"),
		Picture: str("picture"),
	}, nil
}
