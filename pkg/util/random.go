package util

import (
	"crypto/rand"
	"fmt"
)

// GenerateRandomKey draws bits of entropy from the system CSPRNG and
// panics if the source fails.
func GenerateRandomKey(bits int) []byte {
	key := make([]byte, bits/8)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Errorf("could not read random bytes: %w", err))
	}
	return key
}
