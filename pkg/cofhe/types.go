// Package cofhe defines the contract of the external FHE coprocessor service
// (permit issuance, sealing-key unsealing and input encryption) and a
// production client for its threshold-network HTTP API.
package cofhe

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// UType is the declared FHE type of an encrypted value.
type UType uint8

const (
	Bool    UType = 0
	Uint4   UType = 1
	Uint8   UType = 2
	Uint16  UType = 3
	Uint32  UType = 4
	Uint64  UType = 5
	Uint128 UType = 6
	Address UType = 7
	Uint256 UType = 8
)

// String returns the type name used in logs and API payloads.
func (t UType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Uint4:
		return "uint4"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Uint128:
		return "uint128"
	case Address:
		return "address"
	case Uint256:
		return "uint256"
	default:
		return fmt.Sprintf("utype(%d)", uint8(t))
	}
}

// bitSize is the plaintext width of the type.
func (t UType) bitSize() int {
	switch t {
	case Bool:
		return 1
	case Uint4:
		return 4
	case Uint8:
		return 8
	case Uint16:
		return 16
	case Uint32:
		return 32
	case Uint64:
		return 64
	case Uint128:
		return 128
	case Address:
		return 160
	case Uint256:
		return 256
	default:
		return 0
	}
}

// Fits reports whether v is representable as a plaintext of this type.
func (t UType) Fits(v *big.Int) bool {
	size := t.bitSize()
	if size == 0 || v == nil || v.Sign() < 0 {
		return false
	}
	return v.BitLen() <= size
}

// Environment selects which coprocessor deployment the session talks to.
type Environment string

const (
	EnvLocal   Environment = "LOCAL"
	EnvMock    Environment = "MOCK"
	EnvTestnet Environment = "TESTNET"
	EnvMainnet Environment = "MAINNET"
)

// PermitTypeSelf is a permit the account issues for its own reads.
const PermitTypeSelf = "self"

// Encryptable is one plaintext to encrypt.
type Encryptable struct {
	Value *big.Int
	UType UType
}

// EncryptedInput is the ciphertext struct accepted by FHERC20 entry points.
// Field names match the on-chain tuple (ctHash, securityZone, utype, signature).
type EncryptedInput struct {
	CtHash       *big.Int `json:"ctHash"`
	SecurityZone uint8    `json:"securityZone"`
	Utype        uint8    `json:"utype"`
	Signature    []byte   `json:"signature"`
}

// PermitOptions are the inputs to permit creation.
type PermitOptions struct {
	Type   string
	Issuer common.Address
}

// Permit authorizes the coprocessor to re-encrypt values for the holder of
// its sealing key. It is scoped to one issuer and one account.
type Permit struct {
	Type             string         `json:"type"`
	Issuer           common.Address `json:"issuer"`
	Account          common.Address `json:"account"`
	Expiration       time.Time      `json:"expiration"`
	SealingPublicKey [32]byte       `json:"-"`
	Signature        []byte         `json:"signature"`
	Hash             string         `json:"hash"`
	CreatedAt        time.Time      `json:"createdAt"`

	sealingPrivateKey *[32]byte
}

// Expired reports whether the permit is no longer valid at now.
func (p *Permit) Expired(now time.Time) bool {
	return !p.Expiration.IsZero() && !now.Before(p.Expiration)
}
