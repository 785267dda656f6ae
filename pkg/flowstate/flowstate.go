// Package flowstate carries the per-login context across the
// redirect round-trip through the upstream identity provider. The
// encoded state is MAC-protected so a tampered redirect cannot
// switch the client, return URL or provider association.
package flowstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// ErrInvalidState is returned for any state blob that does not
// verify and decode cleanly.
var ErrInvalidState = errors.New("invalid_state")

// State is the ephemeral login context. It is never persisted
// server-side; it round-trips through the browser inside the OAuth
// state parameter.
type State struct {
	Client    string `cbor:"client"`
	ReturnURL string `cbor:"return_url"`
	Provider  string `cbor:"provider"`
	IssuedAt  int64  `cbor:"issued_at"`
}

// Codec encodes states as compact CBOR payloads wrapped in an HS256
// JWS. Decoding rejects unknown providers and missing fields.
type Codec struct {
	secret    []byte
	providers map[string]struct{}
}

func NewCodec(secret []byte, providers []string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("state secret must be at least 32 bytes, got %d", len(secret))
	}
	known := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		known[p] = struct{}{}
	}
	return &Codec{secret: secret, providers: known}, nil
}

func (c *Codec) Encode(state State) (string, error) {
	if state.IssuedAt == 0 {
		state.IssuedAt = time.Now().Unix()
	}

	payload, err := cbor.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("unable to encode state: %w", err)
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwa.HS256, c.secret))
	if err != nil {
		return "", fmt.Errorf("unable to sign state: %w", err)
	}

	return string(signed), nil
}

func (c *Codec) Decode(opaque string) (*State, error) {
	payload, err := jws.Verify([]byte(opaque), jws.WithKey(jwa.HS256, c.secret))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	var state State
	if err := cbor.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Client == "" || state.ReturnURL == "" || state.Provider == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidState)
	}
	if _, ok := c.providers[state.Provider]; !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidState, state.Provider)
	}

	return &state, nil
}
