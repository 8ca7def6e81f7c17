package cofhe

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/nacl/box"
)

var (
	ErrInvalidPermit        = errors.New("invalid permit")
	ErrPermitExpired        = errors.New("permit expired")
	ErrPermitSignerMismatch = errors.New("permit signature does not match account")
)

// NewPermit builds and signs a permit for signer. A fresh sealing key pair is
// generated so that values unsealed under this permit can only be opened by
// the holder of the returned permit.
func NewPermit(signer Signer, opts PermitOptions, ttl time.Duration, now time.Time) (*Permit, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: nil signer", ErrInvalidPermit)
	}
	permitType := opts.Type
	if permitType == "" {
		permitType = PermitTypeSelf
	}
	if permitType != PermitTypeSelf {
		return nil, fmt.Errorf("%w: unsupported permit type %q", ErrInvalidPermit, permitType)
	}
	if opts.Issuer == (common.Address{}) {
		return nil, fmt.Errorf("%w: issuer is required", ErrInvalidPermit)
	}

	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}

	p := &Permit{
		Type:              permitType,
		Issuer:            opts.Issuer,
		Account:           signer.Address(),
		SealingPublicKey:  *pub,
		CreatedAt:         now.UTC(),
		sealingPrivateKey: priv,
	}
	if ttl > 0 {
		p.Expiration = now.Add(ttl).UTC()
	}

	digest := p.digest()
	sig, err := signer.SignHash(accounts.TextHash(digest))
	if err != nil {
		return nil, fmt.Errorf("failed to sign permit: %w", err)
	}
	p.Signature = sig
	p.Hash = hexutil.Encode(digest)

	return p, nil
}

// digest is keccak256 over the permit's signed fields.
func (p *Permit) digest() []byte {
	var exp [8]byte
	if !p.Expiration.IsZero() {
		binary.BigEndian.PutUint64(exp[:], uint64(p.Expiration.Unix()))
	}
	return crypto.Keccak256(
		[]byte(p.Type),
		p.Issuer.Bytes(),
		p.Account.Bytes(),
		exp[:],
		p.SealingPublicKey[:],
	)
}

// Verify checks the permit hash and that its signature recovers to Account.
func (p *Permit) Verify(now time.Time) error {
	if p == nil {
		return fmt.Errorf("%w: nil permit", ErrInvalidPermit)
	}
	digest := p.digest()
	if !strings.EqualFold(hexutil.Encode(digest), p.Hash) {
		return fmt.Errorf("%w: hash mismatch", ErrInvalidPermit)
	}
	if len(p.Signature) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature length %d", ErrInvalidPermit, len(p.Signature))
	}

	sig := make([]byte, len(p.Signature))
	copy(sig, p.Signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(digest), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPermit, err)
	}
	if crypto.PubkeyToAddress(*pub) != p.Account {
		return ErrPermitSignerMismatch
	}
	if p.Expired(now) {
		return ErrPermitExpired
	}
	return nil
}

// Open decrypts a value sealed to this permit's public key.
func (p *Permit) Open(sealed *SealedOutput) ([]byte, error) {
	if p.sealingPrivateKey == nil {
		return nil, fmt.Errorf("%w: permit has no sealing key", ErrInvalidPermit)
	}
	if sealed == nil {
		return nil, errors.New("nil sealed output")
	}
	if len(sealed.Nonce) != 24 || len(sealed.PublicKey) != 32 {
		return nil, errors.New("malformed sealed output")
	}

	var nonce [24]byte
	var peer [32]byte
	copy(nonce[:], sealed.Nonce)
	copy(peer[:], sealed.PublicKey)

	plain, ok := box.Open(nil, sealed.Data, &nonce, &peer, p.sealingPrivateKey)
	if !ok {
		return nil, errors.New("failed to open sealed output")
	}
	return plain, nil
}

// SealedOutput is a value re-encrypted by the network to a permit's sealing key.
type SealedOutput struct {
	Data      []byte `json:"data"`
	Nonce     []byte `json:"nonce"`
	PublicKey []byte `json:"publicKey"`
}
