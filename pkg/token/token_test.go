package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/zeroauth/authgate/pkg/keyset"
	"github.com/zeroauth/authgate/pkg/nonce"
	"github.com/zeroauth/authgate/pkg/token"
)

const testIssuer = "https://auth.example"

func newTestIssuer(t *testing.T) (*token.Issuer, *token.Verifier, *keyset.Manager) {
	t.Helper()

	keys := keyset.NewManager(keyset.Config{})
	if err := keys.EnsureKeys(); err != nil {
		t.Fatal(err)
	}

	nonces, err := nonce.NewHashicorpService(token.OttTTL)
	if err != nil {
		t.Fatal(err)
	}

	return token.NewIssuer(testIssuer, keys, nonces), token.NewVerifier(keys), keys
}

func TestRefreshRoundTrip(t *testing.T) {
	issuer, verifier, _ := newTestIssuer(t)

	raw, err := issuer.IssueRefresh("user-1", "github")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := verifier.Verify(raw, token.AudienceAuth, testIssuer, token.TypeRefresh)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Provider != "github" {
		t.Errorf("expected provider github, got %s", claims.Provider)
	}
}

func TestOttRoundTrip(t *testing.T) {
	issuer, verifier, _ := newTestIssuer(t)

	raw, err := issuer.IssueOtt("user-1", "note", "google")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := verifier.Verify(raw, token.AudienceAuth, testIssuer, token.TypeOtt)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Client != "note" {
		t.Errorf("expected client note, got %s", claims.Client)
	}
	if claims.JTI == "" {
		t.Error("expected ott to carry a jti")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	issuer, verifier, _ := newTestIssuer(t)

	raw, err := issuer.IssueSession("user-1", []string{"read", "write"}, "note-api", 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := verifier.Verify(raw, "note-api", testIssuer, token.TypeSession)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if len(claims.Scope) != 2 || claims.Scope[0] != "read" {
		t.Errorf("unexpected scope %v", claims.Scope)
	}
}

func TestWrongTypeRejected(t *testing.T) {
	issuer, verifier, _ := newTestIssuer(t)

	ott, err := issuer.IssueOtt("user-1", "note", "github")
	if err != nil {
		t.Fatal(err)
	}
	refresh, err := issuer.IssueRefresh("user-1", "github")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(ott, token.AudienceAuth, testIssuer, token.TypeRefresh); !errors.Is(err, token.ErrWrongType) {
		t.Errorf("ott as refresh: expected ErrWrongType, got %v", err)
	}
	if _, err := verifier.Verify(refresh, token.AudienceAuth, testIssuer, token.TypeOtt); !errors.Is(err, token.ErrWrongType) {
		t.Errorf("refresh as ott: expected ErrWrongType, got %v", err)
	}
	if _, err := verifier.Verify(refresh, token.AudienceAuth, testIssuer, token.TypeSession); !errors.Is(err, token.ErrWrongType) {
		t.Errorf("refresh as session: expected ErrWrongType, got %v", err)
	}
}

func TestAudienceMismatchRejected(t *testing.T) {
	issuer, verifier, _ := newTestIssuer(t)

	raw, err := issuer.IssueSession("user-1", nil, "note-api", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(raw, "other-api", testIssuer, token.TypeSession); !errors.Is(err, token.ErrAudienceMismatch) {
		t.Errorf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestIssuerMismatchRejected(t *testing.T) {
	issuer, verifier, _ := newTestIssuer(t)

	raw, err := issuer.IssueSession("user-1", nil, "note-api", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(raw, "note-api", "https://other.example", token.TypeSession); !errors.Is(err, token.ErrIssuerMismatch) {
		t.Errorf("expected ErrIssuerMismatch, got %v", err)
	}
}

func TestExpiredRejected(t *testing.T) {
	_, verifier, keys := newTestIssuer(t)

	// craft an otherwise valid token with exp in the past
	signKey, err := keys.SigningKey()
	if err != nil {
		t.Fatal(err)
	}

	tok := jwt.New()
	tok.Set(jwt.SubjectKey, "user-1")
	tok.Set(jwt.IssuerKey, testIssuer)
	tok.Set(jwt.AudienceKey, "note-api")
	tok.Set(jwt.ExpirationKey, time.Now().Add(-time.Minute))
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, signKey))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(string(signed), "note-api", testIssuer, token.TypeSession); !errors.Is(err, token.ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestMissingExpirationRejected(t *testing.T) {
	_, verifier, keys := newTestIssuer(t)

	// a validly signed token without exp must not verify
	signKey, err := keys.SigningKey()
	if err != nil {
		t.Fatal(err)
	}

	tok := jwt.New()
	tok.Set(jwt.SubjectKey, "user-1")
	tok.Set(jwt.IssuerKey, testIssuer)
	tok.Set(jwt.AudienceKey, "note-api")
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, signKey))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(string(signed), "note-api", testIssuer, token.TypeSession); !errors.Is(err, token.ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestForeignKeyRejected(t *testing.T) {
	issuer, _, _ := newTestIssuer(t)
	_, otherVerifier, _ := newTestIssuer(t)

	raw, err := issuer.IssueRefresh("user-1", "github")
	if err != nil {
		t.Fatal(err)
	}

	// the token's kid is not in the other verifier's JWKS
	if _, err := otherVerifier.Verify(raw, token.AudienceAuth, testIssuer, token.TypeRefresh); !errors.Is(err, token.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestHmacForgeryRejected(t *testing.T) {
	_, verifier, _ := newTestIssuer(t)

	tok := jwt.New()
	tok.Set(jwt.SubjectKey, "user-1")
	tok.Set(jwt.IssuerKey, testIssuer)
	tok.Set(jwt.AudienceKey, token.AudienceAuth)
	tok.Set("type", token.TypeRefresh)
	tok.Set(jwt.ExpirationKey, time.Now().Add(time.Hour))
	forged, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("attacker-controlled-secret-value")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.Verify(string(forged), token.AudienceAuth, testIssuer, token.TypeRefresh); !errors.Is(err, token.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}
