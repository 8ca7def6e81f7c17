package cofhe

import (
	"crypto/ecdsa"
	"crypto/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"
)

type keySigner struct {
	key *ecdsa.PrivateKey
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &keySigner{key: key}
}

func (s *keySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *keySigner) SignHash(hash []byte) ([]byte, error) {
	return crypto.Sign(hash, s.key)
}

var testIssuer = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestNewPermit(t *testing.T) {
	signer := newKeySigner(t)
	now := time.Unix(1_700_000_000, 0)

	p, err := NewPermit(signer, PermitOptions{Issuer: testIssuer}, time.Hour, now)
	require.NoError(t, err)

	assert.Equal(t, PermitTypeSelf, p.Type)
	assert.Equal(t, signer.Address(), p.Account)
	assert.Equal(t, testIssuer, p.Issuer)
	assert.Equal(t, now.Add(time.Hour).UTC(), p.Expiration)
	assert.NotEmpty(t, p.Hash)
	require.NoError(t, p.Verify(now))
}

func TestNewPermit_Rejects(t *testing.T) {
	signer := newKeySigner(t)
	now := time.Now()

	_, err := NewPermit(signer, PermitOptions{}, time.Hour, now)
	require.ErrorIs(t, err, ErrInvalidPermit)

	_, err = NewPermit(signer, PermitOptions{Type: "sharing", Issuer: testIssuer}, time.Hour, now)
	require.ErrorIs(t, err, ErrInvalidPermit)

	_, err = NewPermit(nil, PermitOptions{Issuer: testIssuer}, time.Hour, now)
	require.ErrorIs(t, err, ErrInvalidPermit)
}

func TestPermit_VerifyDetectsTampering(t *testing.T) {
	signer := newKeySigner(t)
	now := time.Now()

	p, err := NewPermit(signer, PermitOptions{Issuer: testIssuer}, time.Hour, now)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		require.ErrorIs(t, p.Verify(now.Add(2*time.Hour)), ErrPermitExpired)
	})

	t.Run("issuer changed", func(t *testing.T) {
		tampered := *p
		tampered.Issuer = common.HexToAddress("0xbb")
		require.ErrorIs(t, tampered.Verify(now), ErrInvalidPermit)
	})

	t.Run("foreign signature", func(t *testing.T) {
		other, err := NewPermit(newKeySigner(t), PermitOptions{Issuer: testIssuer}, time.Hour, now)
		require.NoError(t, err)

		tampered := *p
		tampered.Signature = other.Signature
		require.Error(t, tampered.Verify(now))
	})
}

func TestPermit_Open(t *testing.T) {
	signer := newKeySigner(t)
	p, err := NewPermit(signer, PermitOptions{Issuer: testIssuer}, 0, time.Now())
	require.NoError(t, err)
	assert.True(t, p.Expiration.IsZero())

	sealed := sealTo(t, p.SealingPublicKey, []byte{0x05, 0xdc})
	plain, err := p.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0xdc}, plain)

	sealed.Data[0] ^= 0xff
	_, err = p.Open(sealed)
	require.Error(t, err)

	_, err = p.Open(&SealedOutput{Data: []byte{1}})
	require.Error(t, err)
}

func sealTo(t *testing.T, recipient [32]byte, plain []byte) *SealedOutput {
	t.Helper()
	pub, priv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var nonce [24]byte
	_, err = rand.Read(nonce[:])
	require.NoError(t, err)

	return &SealedOutput{
		Data:      box.Seal(nil, plain, &nonce, &recipient, priv),
		Nonce:     nonce[:],
		PublicKey: pub[:],
	}
}
