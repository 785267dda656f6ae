package gateway

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zeroauth/authgate/pkg/keyset"
	"github.com/zeroauth/authgate/pkg/provider"
	"github.com/zeroauth/authgate/pkg/util"
)

// Config is the immutable gateway configuration, built once at
// startup and passed by reference. Nothing reads process-wide state
// after this point.
type Config struct {
	Issuer          string `validate:"required,url"`
	DefaultAudience string `validate:"required"`
	Scopes          []string
	ClientsPath     string `validate:"required"`
	Address         string
	StateSecret     []byte
	Keys            keyset.Config
	Providers       map[string]provider.Config
}

// ConfigFromEnv builds the configuration from the environment. The
// state secret is generated per-process when unset, which is only
// safe for single-instance deployments.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Issuer:          os.Getenv("GATEWAY_ISSUER"),
		DefaultAudience: os.Getenv("GATEWAY_DEFAULT_AUDIENCE"),
		Scopes:          strings.Fields(util.GetEnv("GATEWAY_SCOPES", "openid profile")),
		ClientsPath:     util.GetEnv("GATEWAY_CLIENTS_PATH", "config/clients.yaml"),
		Address:         util.GetEnv("GATEWAY_ADDRESS", ":8080"),
		Keys: keyset.Config{
			PrivatePEM: os.Getenv("GATEWAY_SIGN_PRIVATE_PEM"),
			PublicPEM:  os.Getenv("GATEWAY_SIGN_PUBLIC_PEM"),
			KeyID:      os.Getenv("GATEWAY_SIGN_KID"),
		},
		Providers: map[string]provider.Config{},
	}

	if secret := os.Getenv("GATEWAY_STATE_SECRET"); secret != "" {
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("unable to decode GATEWAY_STATE_SECRET: %w", err)
		}
		cfg.StateSecret = decoded
	} else {
		slog.Warn("GATEWAY_STATE_SECRET not set, generating ephemeral state secret")
		cfg.StateSecret = util.GenerateRandomKey(256)
	}

	if clientID := os.Getenv("GITHUB_CLIENT_ID"); clientID != "" {
		cfg.Providers["github"] = provider.Config{
			ClientID:     clientID,
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		}
	}
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		cfg.Providers["google"] = provider.Config{
			ClientID:     clientID,
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid gateway config: %w", err)
	}
	return nil
}
