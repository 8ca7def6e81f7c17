package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum/contracts"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum/ethtest"
)

func newReaderChain() (*ethtest.Chain, *Reader) {
	chain := ethtest.NewChain()
	chain.AddToken(tkn, &ethtest.Token{
		Confidential: true,
		Name:         "Encrypted USDC",
		Symbol:       "eUSDC",
		Decimals:     6,
		Handles:      map[common.Address]*big.Int{acc: big.NewInt(77)},
		Balances:     map[common.Address]*big.Int{acc: big.NewInt(1234)},
	})
	return chain, NewReader(ethereum.NewFHERC20(chain))
}

func TestReader_ReadIndicated(t *testing.T) {
	_, r := newReaderChain()

	got, err := r.ReadIndicated(context.Background(), tokenAddr, accountAddr)
	require.NoError(t, err)
	assert.Equal(t, "0.1234", got)
}

func TestReader_ReadEncryptedHandle(t *testing.T) {
	_, r := newReaderChain()

	handle, err := r.ReadEncryptedHandle(context.Background(), tokenAddr, accountAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(77), handle.Int64())
}

func TestReader_InvalidAddressesNeverReachChain(t *testing.T) {
	chain, r := newReaderChain()
	ctx := context.Background()

	_, err := r.ReadIndicated(ctx, "0x123", accountAddr)
	require.ErrorIs(t, err, ethereum.ErrInvalidAddress)

	_, err = r.ReadEncryptedHandle(ctx, tokenAddr, "not-an-address")
	require.ErrorIs(t, err, ethereum.ErrInvalidAddress)

	_, err = r.ReadMetadata(ctx, "")
	require.ErrorIs(t, err, ethereum.ErrInvalidAddress)

	assert.Zero(t, chain.Calls(contracts.MethodBalanceOf))
	assert.Zero(t, chain.Calls(contracts.MethodConfidentialBalanceOf))
	assert.Zero(t, chain.Calls(contracts.MethodDecimals))
}

func TestReader_ReadMetadata(t *testing.T) {
	_, r := newReaderChain()

	md, err := r.ReadMetadata(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "eUSDC", md.Symbol)
	assert.Equal(t, uint8(6), md.Decimals)
}

func TestReader_WrapsCallFailures(t *testing.T) {
	chain, r := newReaderChain()
	boom := errors.New("rpc unavailable")
	chain.FailCall(contracts.MethodConfidentialBalanceOf, boom)

	_, err := r.ReadEncryptedHandle(context.Background(), tokenAddr, accountAddr)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to read encrypted balance")
}
