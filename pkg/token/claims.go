package token

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Token type discriminator carried in the "type" claim. Session
// tokens carry no type claim.
const (
	TypeRefresh = "refresh"
	TypeOtt     = "ott"
	TypeSession = ""
)

// AudienceAuth is the audience of refresh and one-time tokens, which
// only the gateway itself may accept.
const AudienceAuth = "auth"

// Claims is the verified view of a gateway token.
type Claims struct {
	Subject    string
	TokenType  string
	Provider   string
	Client     string
	Scope      []string
	Audience   []string
	JTI        string
	Expiration time.Time
}

func claimsFromToken(tok jwt.Token) *Claims {
	claims := &Claims{
		Subject:    tok.Subject(),
		Audience:   tok.Audience(),
		JTI:        tok.JwtID(),
		Expiration: tok.Expiration(),
	}

	claims.TokenType = stringClaim(tok, "type")
	claims.Provider = stringClaim(tok, "provider")
	claims.Client = stringClaim(tok, "client")

	if v, ok := tok.Get("scope"); ok {
		switch scope := v.(type) {
		case []string:
			claims.Scope = scope
		case []interface{}:
			for _, s := range scope {
				if str, ok := s.(string); ok {
					claims.Scope = append(claims.Scope, str)
				}
			}
		}
	}

	return claims
}

func stringClaim(tok jwt.Token, name string) string {
	if v, ok := tok.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
