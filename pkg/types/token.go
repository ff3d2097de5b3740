package types

import "strings"

// NativeAddress is the reserved sentinel address used for a chain's native asset
const NativeAddress = "0x0000000000000000000000000000000000000000"

// TokenInfo is the canonical token representation handed to order widgets
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	LogoURL  string `json:"logo_url,omitempty"`
	IsNative bool   `json:"is_native,omitempty"`
}

// SameAddress reports whether two tokens point at the same address, ignoring case
func (t TokenInfo) SameAddress(other TokenInfo) bool {
	return EqualAddress(t.Address, other.Address)
}

// EqualAddress compares two addresses case-insensitively. Empty addresses never match.
func EqualAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
