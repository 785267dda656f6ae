package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/zeroauth/authgate/pkg/keyset"
)

// Classified verification failures. Callers branch on these instead
// of parsing error strings.
var (
	ErrSignatureInvalid = errors.New("signature_invalid")
	ErrExpired          = errors.New("expired")
	ErrAudienceMismatch = errors.New("audience_mismatch")
	ErrIssuerMismatch   = errors.New("issuer_mismatch")
	ErrWrongType        = errors.New("wrong_type")
)

// Verifier is the single choke point for accepting gateway tokens.
// The algorithm is pinned to RS256 via the published JWKS; tokens
// signed with an unknown kid, with HMAC or with alg "none" fail as
// ErrSignatureInvalid.
type Verifier struct {
	keys *keyset.Manager
}

func NewVerifier(keys *keyset.Manager) *Verifier {
	return &Verifier{keys: keys}
}

// Verify checks signature, expiry, issuer, audience and the "type"
// claim of the serialized token. expectedType is TypeSession for
// tokens that must not carry a type claim.
func (v *Verifier) Verify(raw, expectedAudience, expectedIssuer, expectedType string) (*Claims, error) {
	jwks, err := v.keys.PublicJWKS()
	if err != nil {
		return nil, fmt.Errorf("unable to get JWKS: %w", err)
	}

	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(jwks, jws.WithRequireKid(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	claims := claimsFromToken(tok)

	// a token without exp is treated as expired
	if claims.Expiration.IsZero() || time.Now().After(claims.Expiration) {
		return nil, ErrExpired
	}

	if tok.Issuer() != expectedIssuer {
		return nil, fmt.Errorf("%w: got %q", ErrIssuerMismatch, tok.Issuer())
	}

	if !containsAudience(claims.Audience, expectedAudience) {
		return nil, fmt.Errorf("%w: got %v", ErrAudienceMismatch, claims.Audience)
	}

	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("%w: got %q, expected %q", ErrWrongType, claims.TokenType, expectedType)
	}

	return claims, nil
}

func containsAudience(audiences []string, expected string) bool {
	for _, aud := range audiences {
		if aud == expected {
			return true
		}
	}
	return false
}
