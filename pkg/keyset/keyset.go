// Package keyset manages the process-wide RSA signing key pair and
// publishes its public half as a JSON Web Key Set.
package keyset

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Config carries optional PEM-encoded key material. When PrivatePEM
// is empty an ephemeral RSA-2048 pair is generated on first use.
type Config struct {
	PrivatePEM string
	PublicPEM  string
	KeyID      string
}

// Manager holds the signing key and the public JWKS. The key pair is
// initialized exactly once; concurrent first callers block until the
// same pair is available.
type Manager struct {
	cfg Config

	mu          sync.Mutex
	initialized bool
	signKey     jwk.Key
	jwks        jwk.Set
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// EnsureKeys initializes the key pair if it is not yet available.
// Configured PEM material is imported; a malformed PEM is an error,
// never a silent fallback to generation.
func (m *Manager) EnsureKeys() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	var err error
	if m.cfg.PrivatePEM != "" {
		err = m.importConfiguredKeys()
	} else {
		err = m.generateKeys()
	}
	if err != nil {
		return err
	}

	m.initialized = true
	return nil
}

func (m *Manager) importConfiguredKeys() error {
	signKey, err := jwk.ParseKey([]byte(m.cfg.PrivatePEM), jwk.WithPEM(true))
	if err != nil {
		return fmt.Errorf("unable to parse private key PEM: %w", err)
	}
	if _, ok := signKey.(jwk.RSAPrivateKey); !ok {
		return fmt.Errorf("configured private key is not an RSA key")
	}

	if m.cfg.PublicPEM != "" {
		pubKey, err := jwk.ParseKey([]byte(m.cfg.PublicPEM), jwk.WithPEM(true))
		if err != nil {
			return fmt.Errorf("unable to parse public key PEM: %w", err)
		}
		if _, ok := pubKey.(jwk.RSAPublicKey); !ok {
			return fmt.Errorf("configured public key is not an RSA key")
		}
	}

	kid := m.cfg.KeyID
	if kid == "" {
		thumbprint, err := signKey.Thumbprint(crypto.SHA256)
		if err != nil {
			return fmt.Errorf("unable to compute key thumbprint: %w", err)
		}
		kid = base64.RawURLEncoding.EncodeToString(thumbprint)
	}

	return m.adoptSigningKey(signKey, kid)
}

func (m *Manager) generateKeys() error {
	rawKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("unable to generate keys: %w", err)
	}

	signKey, err := jwk.FromRaw(rawKey)
	if err != nil {
		return fmt.Errorf("unable to generate keys: %w", err)
	}

	thumbprint, err := signKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return fmt.Errorf("unable to generate keys: %w", err)
	}
	kid := base64.RawURLEncoding.EncodeToString(thumbprint)

	slog.Debug("Generated ephemeral signing key", "kid", kid)

	return m.adoptSigningKey(signKey, kid)
}

func (m *Manager) adoptSigningKey(signKey jwk.Key, kid string) error {
	signKey.Set(jwk.KeyIDKey, kid)
	signKey.Set(jwk.KeyUsageKey, "sig")
	signKey.Set(jwk.AlgorithmKey, jwa.RS256)

	pubKey, err := signKey.PublicKey()
	if err != nil {
		return fmt.Errorf("unable to derive public key: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(pubKey); err != nil {
		return fmt.Errorf("unable to build JWKS: %w", err)
	}

	m.signKey = signKey
	m.jwks = jwks
	return nil
}

// SigningKey returns the private signing key, initializing the pair
// if necessary.
func (m *Manager) SigningKey() (jwk.Key, error) {
	if err := m.EnsureKeys(); err != nil {
		return nil, err
	}
	return m.signKey, nil
}

// PublicJWKS returns the public key set. Stable once initialized;
// keys are not rotated mid-process.
func (m *Manager) PublicJWKS() (jwk.Set, error) {
	if err := m.EnsureKeys(); err != nil {
		return nil, err
	}
	return m.jwks, nil
}

// KeyID returns the active key id.
func (m *Manager) KeyID() (string, error) {
	key, err := m.SigningKey()
	if err != nil {
		return "", err
	}
	return key.KeyID(), nil
}
