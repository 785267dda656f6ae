// Package nonce provides redeem-once identifiers used to enforce
// single use of one-time tokens.
package nonce

// Service issues opaque nonce strings and redeems each of them at
// most once. Implementations must be safe for concurrent use.
type Service interface {
	Get() (string, error)
	Redeem(nonceStr string) error
}
