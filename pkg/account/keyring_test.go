package account

import (
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/confidential-wallet/pkg/config"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
)

// Hardhat/anvil account #1.
const (
	devKey1     = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	devAddress1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func TestKeyring_SwitchNotifiesListeners(t *testing.T) {
	k := NewKeyring()
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	require.NoError(t, k.Add("Main", a))
	require.NoError(t, k.Add("Savings", b))

	active, err := k.Active()
	require.NoError(t, err)
	assert.Equal(t, a.Address(), active.Address())

	var changes [][2]common.Address
	k.OnChange(func(prev, next common.Address) {
		changes = append(changes, [2]common.Address{prev, next})
	})

	w, err := k.Switch(b.Address().Hex())
	require.NoError(t, err)
	assert.Equal(t, Wallet{Name: "Savings", Address: b.Address(), Active: true}, w)

	assert.Equal(t, []Wallet{
		{Name: "Main", Address: a.Address()},
		{Name: "Savings", Address: b.Address(), Active: true},
	}, k.Wallets())

	k.Disconnect()
	_, err = k.Active()
	require.ErrorIs(t, err, ErrNoActiveAccount)
	assert.Len(t, k.Wallets(), 2)

	require.Len(t, changes, 2)
	assert.Equal(t, [2]common.Address{a.Address(), b.Address()}, changes[0])
	assert.Equal(t, [2]common.Address{b.Address(), {}}, changes[1])
}

func TestKeyring_Errors(t *testing.T) {
	k := NewKeyring()
	a, err := Generate()
	require.NoError(t, err)
	require.NoError(t, k.Add("Main", a))

	require.ErrorIs(t, k.Add("Again", a), ErrDuplicateWallet)

	_, err = k.Switch("0x0000000000000000000000000000000000000001")
	require.ErrorIs(t, err, ErrUnknownWallet)

	_, err = k.Switch("main")
	require.ErrorIs(t, err, ethereum.ErrInvalidAddress)

	active, err := k.Active()
	require.NoError(t, err)
	assert.Equal(t, a.Address(), active.Address())
}

func TestLoadKeyring(t *testing.T) {
	t.Run("primary and listed wallets", func(t *testing.T) {
		t.Setenv("TEST_WALLET_KEY", devKey)
		t.Setenv("TEST_SAVINGS_KEY", devKey1)

		k, err := LoadKeyring(&config.AccountConfig{
			Name:          "Main",
			PrivateKeyEnv: "TEST_WALLET_KEY",
			Wallets:       []config.WalletConfig{{Name: "Savings", PrivateKeyEnv: "TEST_SAVINGS_KEY"}},
		})
		require.NoError(t, err)

		assert.Equal(t, []Wallet{
			{Name: "Main", Address: common.HexToAddress(devAddress), Active: true},
			{Name: "Savings", Address: common.HexToAddress(devAddress1)},
		}, k.Wallets())
	})

	t.Run("no primary key starts disconnected", func(t *testing.T) {
		t.Setenv("TEST_WALLET_KEY", "")
		t.Setenv("TEST_SAVINGS_KEY", devKey1)

		k, err := LoadKeyring(&config.AccountConfig{
			PrivateKeyEnv: "TEST_WALLET_KEY",
			Wallets:       []config.WalletConfig{{Name: "Savings", PrivateKeyEnv: "TEST_SAVINGS_KEY"}},
		})
		require.NoError(t, err)
		active, err := k.Active()
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(devAddress1), active.Address())
	})

	t.Run("empty", func(t *testing.T) {
		t.Setenv("TEST_WALLET_KEY", "")
		k, err := LoadKeyring(&config.AccountConfig{PrivateKeyEnv: "TEST_WALLET_KEY"})
		require.NoError(t, err)
		assert.Empty(t, k.Wallets())
		_, err = k.Active()
		require.ErrorIs(t, err, ErrNoActiveAccount)
	})

	t.Run("listed wallet without key", func(t *testing.T) {
		t.Setenv("TEST_WALLET_KEY", devKey)
		t.Setenv("TEST_SAVINGS_KEY", "")

		_, err := LoadKeyring(&config.AccountConfig{
			PrivateKeyEnv: "TEST_WALLET_KEY",
			Wallets:       []config.WalletConfig{{Name: "Savings", PrivateKeyEnv: "TEST_SAVINGS_KEY"}},
		})
		require.ErrorContains(t, err, "TEST_SAVINGS_KEY")
	})

	t.Run("encrypted wallets share the master key", func(t *testing.T) {
		master := make([]byte, 32)
		_, err := rand.Read(master)
		require.NoError(t, err)

		acc, err := FromHex(devKey1)
		require.NoError(t, err)
		enc, err := EncryptPrivateKey(acc.PrivateKeyBytes(), master)
		require.NoError(t, err)

		t.Setenv("TEST_WALLET_KEY", "")
		t.Setenv("TEST_SAVINGS_KEY", enc)
		t.Setenv("TEST_MASTER_KEY", hexutil.Encode(master))

		k, err := LoadKeyring(&config.AccountConfig{
			PrivateKeyEnv: "TEST_WALLET_KEY",
			MasterKeyEnv:  "TEST_MASTER_KEY",
			Wallets:       []config.WalletConfig{{Name: "Savings", PrivateKeyEnv: "TEST_SAVINGS_KEY"}},
		})
		require.NoError(t, err)
		require.Len(t, k.Wallets(), 1)
		assert.Equal(t, acc.Address(), k.Wallets()[0].Address)
	})
}
