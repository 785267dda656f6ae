package nonce

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"
)

// HashicorpService backs the redeem-once contract with the in-memory
// nonceutil service. Ids expire after validity, so abandoned ids age
// out on their own instead of accumulating. Single-instance only;
// a clustered deployment needs a shared store behind Service.
type HashicorpService struct {
	backend nonceutil.NonceService
}

// NewHashicorpService creates a redeem-once service whose ids stay
// redeemable for validity. Callers align this with the lifetime of
// whatever carries the id, so an id never outlives its carrier.
func NewHashicorpService(validity time.Duration) (*HashicorpService, error) {
	backend := nonceutil.NewNonceServiceWithValidity(validity)
	if err := backend.Initialize(); err != nil {
		return nil, fmt.Errorf("could not initialize nonce backend: %w", err)
	}
	return &HashicorpService{backend: backend}, nil
}

func (s *HashicorpService) Get() (string, error) {
	id, _, err := s.backend.Get()
	if err != nil {
		return "", fmt.Errorf("could not draw nonce: %w", err)
	}
	return id, nil
}

// Redeem consumes id. A second call with the same id fails, as does
// an id this service never issued or one past its validity.
func (s *HashicorpService) Redeem(id string) error {
	if !s.backend.Redeem(id) {
		return fmt.Errorf("could not redeem nonce: unknown, expired or already redeemed")
	}
	return nil
}
