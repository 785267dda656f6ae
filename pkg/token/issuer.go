// Package token mints and verifies the three gateway token kinds:
// the long-lived refresh token, the short-lived one-time token and
// the audience-scoped session token.
package token

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/segmentio/ksuid"
	"github.com/zeroauth/authgate/pkg/keyset"
	"github.com/zeroauth/authgate/pkg/nonce"
)

const (
	RefreshTTL    = 14 * 24 * time.Hour
	OttTTL        = 60 * time.Second
	SessionMaxTTL = 30 * time.Minute
)

// Issuer signs tokens with the key manager's active key. One-time
// token ids come from the redeem-once nonce service so each OTT can
// be consumed at most once.
type Issuer struct {
	issuer string
	keys   *keyset.Manager
	nonces nonce.Service
}

func NewIssuer(issuerURL string, keys *keyset.Manager, nonces nonce.Service) *Issuer {
	return &Issuer{
		issuer: issuerURL,
		keys:   keys,
		nonces: nonces,
	}
}

func (i *Issuer) IssueRefresh(subject, provider string) (string, error) {
	tok := jwt.New()
	tok.Set(jwt.SubjectKey, subject)
	tok.Set("type", TypeRefresh)
	tok.Set("provider", provider)
	tok.Set(jwt.JwtIDKey, ksuid.New().String())
	tok.Set(jwt.AudienceKey, AudienceAuth)

	return i.sign(tok, RefreshTTL)
}

func (i *Issuer) IssueOtt(subject, client, provider string) (string, error) {
	jti, err := i.nonces.Get()
	if err != nil {
		return "", fmt.Errorf("unable to draw ott id: %w", err)
	}

	tok := jwt.New()
	tok.Set(jwt.SubjectKey, subject)
	tok.Set("type", TypeOtt)
	tok.Set("client", client)
	tok.Set("provider", provider)
	tok.Set(jwt.JwtIDKey, jti)
	tok.Set(jwt.AudienceKey, AudienceAuth)

	return i.sign(tok, OttTTL)
}

func (i *Issuer) IssueSession(subject string, scope []string, audience string, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > SessionMaxTTL {
		ttl = SessionMaxTTL
	}

	tok := jwt.New()
	tok.Set(jwt.SubjectKey, subject)
	tok.Set("scope", scope)
	tok.Set(jwt.JwtIDKey, ksuid.New().String())
	tok.Set(jwt.AudienceKey, audience)

	return i.sign(tok, ttl)
}

func (i *Issuer) sign(tok jwt.Token, ttl time.Duration) (string, error) {
	signKey, err := i.keys.SigningKey()
	if err != nil {
		return "", fmt.Errorf("unable to get signing key: %w", err)
	}

	now := time.Now()
	tok.Set(jwt.IssuerKey, i.issuer)
	tok.Set(jwt.IssuedAtKey, now)
	tok.Set(jwt.ExpirationKey, now.Add(ttl))

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, signKey))
	if err != nil {
		return "", fmt.Errorf("unable to sign token: %w", err)
	}

	return string(signed), nil
}
