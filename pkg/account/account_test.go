package account

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/confidential-wallet/pkg/config"
)

// Hardhat/anvil account #0.
const (
	devKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestFromHex(t *testing.T) {
	acc, err := FromHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(devAddress), acc.Address())
	assert.Equal(t, devKey, acc.PrivateKeyHex())

	_, err = FromHex("0x1234")
	require.Error(t, err)
}

func TestSignHash(t *testing.T) {
	acc, err := Generate()
	require.NoError(t, err)

	hash := accounts.TextHash([]byte("permit"))
	sig, err := acc.SignHash(hash)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)

	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), crypto.PubkeyToAddress(*pub))

	_, err = acc.SignHash([]byte("short"))
	require.Error(t, err)
}

func TestTransactor(t *testing.T) {
	acc, err := Generate()
	require.NoError(t, err)

	opts, err := acc.Transactor(big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, acc.Address(), opts.From)
}

func TestEncryptDecryptPrivateKey(t *testing.T) {
	master := make([]byte, 32)
	_, err := rand.Read(master)
	require.NoError(t, err)

	acc, err := FromHex(devKey)
	require.NoError(t, err)

	enc, err := EncryptPrivateKey(acc.PrivateKeyBytes(), master)
	require.NoError(t, err)

	dec, err := DecryptPrivateKey(enc, master)
	require.NoError(t, err)
	assert.Equal(t, acc.PrivateKeyBytes(), dec)

	wrong := make([]byte, 32)
	_, err = DecryptPrivateKey(enc, wrong)
	require.Error(t, err)

	_, err = EncryptPrivateKey(acc.PrivateKeyBytes(), master[:16])
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	cfg := &config.AccountConfig{PrivateKeyEnv: "TEST_WALLET_KEY"}

	t.Run("unset", func(t *testing.T) {
		t.Setenv("TEST_WALLET_KEY", "")
		_, err := LoadFromEnv(cfg)
		require.ErrorIs(t, err, ErrNoActiveAccount)
	})

	t.Run("plain hex", func(t *testing.T) {
		t.Setenv("TEST_WALLET_KEY", devKey)
		acc, err := LoadFromEnv(cfg)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(devAddress), acc.Address())
	})

	t.Run("encrypted", func(t *testing.T) {
		master := make([]byte, 32)
		_, err := rand.Read(master)
		require.NoError(t, err)

		acc, err := FromHex(devKey)
		require.NoError(t, err)
		enc, err := EncryptPrivateKey(acc.PrivateKeyBytes(), master)
		require.NoError(t, err)

		t.Setenv("TEST_WALLET_KEY", enc)
		t.Setenv("TEST_MASTER_KEY", hexutil.Encode(master))

		loaded, err := LoadFromEnv(&config.AccountConfig{
			PrivateKeyEnv: "TEST_WALLET_KEY",
			MasterKeyEnv:  "TEST_MASTER_KEY",
		})
		require.NoError(t, err)
		assert.Equal(t, acc.Address(), loaded.Address())
	})
}

func TestHolder(t *testing.T) {
	h := NewHolder(nil)
	_, err := h.Active()
	require.ErrorIs(t, err, ErrNoActiveAccount)

	var changes [][2]common.Address
	h.OnChange(func(prev, next common.Address) {
		changes = append(changes, [2]common.Address{prev, next})
	})

	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	h.Set(a)
	h.Set(a)
	h.Set(b)
	h.Clear()

	got, err := h.Active()
	require.ErrorIs(t, err, ErrNoActiveAccount)
	assert.Nil(t, got)

	require.Len(t, changes, 3)
	assert.Equal(t, [2]common.Address{{}, a.Address()}, changes[0])
	assert.Equal(t, [2]common.Address{a.Address(), b.Address()}, changes[1])
	assert.Equal(t, [2]common.Address{b.Address(), {}}, changes[2])
}
