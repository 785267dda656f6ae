// Package provider adapts upstream identity providers to the two
// operations the gateway needs: exchanging an authorization code for
// an upstream access token and fetching a stable external subject
// id. New providers implement Adapter; the orchestrator is untouched.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Classified adapter failures.
var (
	ErrNotConfigured = errors.New("provider_not_configured")
	ErrTokenRequest  = errors.New("token_request_failed")
	ErrMissingUserID = errors.New("missing_user_id")
)

// Adapter is the per-provider capability set. Implementations must
// be safe for concurrent use.
type Adapter interface {
	Name() string
	AuthCodeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	FetchIdentity(ctx context.Context, accessToken string) (string, error)
}

// Config carries the provider credentials. Endpoint URLs default to
// the provider's well-known endpoints and are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

// New returns the adapter for the named provider or an error for an
// unknown name. Missing credentials fail immediately, before any
// network call is ever made.
func New(name string, cfg Config) (Adapter, error) {
	switch name {
	case "github":
		return NewGithubAdapter(cfg)
	case "google":
		return NewGoogleAdapter(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// upstream calls must not hang the login handler
var httpClient = &http.Client{
	Timeout: 10 * time.Second,
}

func checkCredentials(cfg Config) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("%w: missing client id or secret", ErrNotConfigured)
	}
	return nil
}
