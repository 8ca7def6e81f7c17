package cofhe

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Signer is the account capability the coprocessor session is bound to.
type Signer interface {
	Address() common.Address
	SignHash(hash []byte) ([]byte, error)
}

// Service is the external cryptographic service.
//
//go:generate mockery --name Service --output mocks --outpkg mocks --filename mock_service.go --with-expecter
type Service interface {
	// InitializeWithSigner binds the service to a signer in the given environment.
	InitializeWithSigner(ctx context.Context, signer Signer, env Environment) error

	// CreatePermit issues a new signed permit for the bound signer.
	CreatePermit(ctx context.Context, opts PermitOptions) (*Permit, error)

	// Unseal decrypts an encrypted handle using the permit identified by permitHash.
	Unseal(ctx context.Context, value *big.Int, utype UType, issuer common.Address, permitHash string) (*big.Int, error)

	// Encrypt returns one ciphertext struct per input, in input order.
	Encrypt(ctx context.Context, items []Encryptable) ([]EncryptedInput, error)
}
