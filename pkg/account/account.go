// Package account holds the active wallet account: its secp256k1 key and the
// signing capabilities the chain gateway and the coprocessor session need.
package account

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoActiveAccount is returned when no wallet account is connected.
var ErrNoActiveAccount = errors.New("no active account")

// Account is an EVM account backed by a secp256k1 private key.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New wraps an existing private key.
func New(key *ecdsa.PrivateKey) *Account {
	return &Account{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Generate creates an account with a fresh random key.
func Generate() (*Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	return New(key), nil
}

// FromHex parses a hex-encoded 32-byte private key, with or without 0x prefix.
func FromHex(s string) (*Account, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return New(key), nil
}

// FromBytes parses a raw 32-byte private key.
func FromBytes(b []byte) (*Account, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes (secp256k1)")
	}
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return New(key), nil
}

// Address returns the account address.
func (a *Account) Address() common.Address {
	return a.address
}

// SignHash signs a 32-byte hash, returning a 65-byte [R || S || V] signature with V in {0, 1}.
func (a *Account) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes")
	}
	sig, err := crypto.Sign(hash, a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Transactor returns transaction signing options for chainID.
func (a *Account) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	return bind.NewKeyedTransactorWithChainID(a.key, chainID)
}

// PrivateKeyBytes returns the raw 32-byte private key.
func (a *Account) PrivateKeyBytes() []byte {
	return crypto.FromECDSA(a.key)
}

// PrivateKeyHex returns the private key as 0x-prefixed hex.
func (a *Account) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(a.key))
}
