// Package token holds token classification types and exact amount conversion
// between human-readable decimal strings and smallest-unit integers.
package token

import "fmt"

// Type is the classification of a token contract.
type Type string

const (
	Standard     Type = "standard"     // value-transparent ERC-20
	Confidential Type = "confidential" // FHERC20 with encrypted balances
)

// ParseType converts a stored tag back into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Standard, Confidential:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown token type %q", s)
	}
}

// IsConfidential reports whether balances of this type are encrypted.
func (t Type) IsConfidential() bool {
	return t == Confidential
}

// Metadata is the public ERC-20 metadata of a token contract.
type Metadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
