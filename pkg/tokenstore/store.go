// Package tokenstore persists the custom tokens a user has added to the wallet
// together with the classification tag recorded for each of them.
package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/chainsafe/confidential-wallet/pkg/token"
)

var (
	// ErrTokenNotFound is returned when no custom token matches an address.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExists is returned when a token with the same address is already stored.
	ErrTokenExists = errors.New("token already exists")
)

// CustomToken is a token contract added by the user.
// Type is empty until the token has been classified.
type CustomToken struct {
	Address   string     `json:"address"`
	Name      string     `json:"name"`
	Symbol    string     `json:"symbol"`
	Decimals  uint8      `json:"decimals"`
	Type      token.Type `json:"tokenType,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Metadata returns the public ERC-20 metadata of the token.
func (c *CustomToken) Metadata() token.Metadata {
	return token.Metadata{
		Address:  c.Address,
		Name:     c.Name,
		Symbol:   c.Symbol,
		Decimals: c.Decimals,
	}
}

// Store defines custom token persistence.
// Addresses are matched case-insensitively.
type Store interface {
	AddToken(ctx context.Context, tkn *CustomToken) error
	GetToken(ctx context.Context, address string) (*CustomToken, error)
	ListTokens(ctx context.Context) ([]*CustomToken, error)
	RemoveToken(ctx context.Context, address string) error
	// RecordTokenType tags a stored token with its classification.
	// Tokens that were never added are ignored.
	RecordTokenType(ctx context.Context, address string, t token.Type) error
}
