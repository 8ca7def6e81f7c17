package history

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/confidential-wallet/pkg/account"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe/mocks"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/session"
)

const tokenAddr = "0x1000000000000000000000000000000000000001"

var tkn = common.HexToAddress(tokenAddr)

func newDecryptor(t *testing.T, svc *mocks.Service, holder *account.Holder) *Decryptor {
	t.Helper()
	d, err := NewDecryptor(session.NewManager(svc, holder), holder, 16, nil)
	require.NoError(t, err)
	return d
}

func newHolder(t *testing.T) *account.Holder {
	t.Helper()
	acc, err := account.Generate()
	require.NoError(t, err)
	return account.NewHolder(acc)
}

func TestDecrypt_ZeroSkipsSession(t *testing.T) {
	svc := mocks.NewService(t)
	d := newDecryptor(t, svc, newHolder(t))

	v, err := d.Decrypt(context.Background(), big.NewInt(0), 6, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	_, err = d.Decrypt(context.Background(), nil, 6, tokenAddr)
	require.ErrorIs(t, err, ErrMissingHandle)
}

func TestDecrypt_UsesTokenAsIssuerAndMemoizes(t *testing.T) {
	svc := mocks.NewService(t)
	svc.EXPECT().InitializeWithSigner(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	svc.EXPECT().CreatePermit(mock.Anything, cofhe.PermitOptions{Type: cofhe.PermitTypeSelf, Issuer: tkn}).
		Return(&cofhe.Permit{Issuer: tkn, Hash: "0xtok"}, nil).Once()
	svc.EXPECT().Unseal(mock.Anything, big.NewInt(42), cofhe.Uint64, tkn, "0xtok").
		Return(big.NewInt(123_450_000), nil).Twice()

	d := newDecryptor(t, svc, newHolder(t))
	ctx := context.Background()

	v, err := d.Decrypt(ctx, big.NewInt(42), 6, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "123.45", v)

	v, err = d.Decrypt(ctx, big.NewInt(42), 6, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "123.45", v)

	// Manual re-trigger bypasses the memo.
	v, err = d.Redecrypt(ctx, big.NewInt(42), 6, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "123.45", v)
}

func TestDecrypt_FailureIsNotMemoized(t *testing.T) {
	svc := mocks.NewService(t)
	svc.EXPECT().InitializeWithSigner(mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc.EXPECT().CreatePermit(mock.Anything, mock.Anything).Return(&cofhe.Permit{Issuer: tkn, Hash: "0xtok"}, nil)
	svc.EXPECT().Unseal(mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("threshold network timeout")).Once()
	svc.EXPECT().Unseal(mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(big.NewInt(5), nil).Once()

	d := newDecryptor(t, svc, newHolder(t))
	ctx := context.Background()

	_, err := d.Decrypt(ctx, big.NewInt(42), 0, tokenAddr)
	require.ErrorIs(t, err, session.ErrUnsealFailed)

	v, err := d.Decrypt(ctx, big.NewInt(42), 0, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "5", v)
}

func TestDecrypt_InvalidIssuer(t *testing.T) {
	d := newDecryptor(t, mocks.NewService(t), newHolder(t))

	_, err := d.Decrypt(context.Background(), big.NewInt(42), 6, "0xnope")
	require.ErrorIs(t, err, ethereum.ErrInvalidAddress)
}

func TestDecryptItems(t *testing.T) {
	svc := mocks.NewService(t)
	svc.EXPECT().InitializeWithSigner(mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc.EXPECT().CreatePermit(mock.Anything, mock.Anything).Return(&cofhe.Permit{Issuer: tkn, Hash: "0xtok"}, nil)
	svc.EXPECT().Unseal(mock.Anything, big.NewInt(7), mock.Anything, mock.Anything, mock.Anything).Return(big.NewInt(2_500_000), nil)

	d := newDecryptor(t, svc, newHolder(t))
	results := d.DecryptItems(context.Background(), []Item{
		{ID: "a", Token: tokenAddr, Handle: big.NewInt(7), Decimals: 6},
		{ID: "b", Token: tokenAddr, Handle: big.NewInt(0), Decimals: 6},
		{ID: "c", Token: "bad", Handle: big.NewInt(7), Decimals: 6},
		{ID: "d", Token: tokenAddr, Decimals: 6},
	})

	require.Len(t, results, 4)
	assert.Equal(t, ItemResult{ID: "a", Value: "2.5"}, results[0])
	assert.Equal(t, ItemResult{ID: "b", Value: "0"}, results[1])
	assert.Equal(t, "c", results[2].ID)
	assert.NotEmpty(t, results[2].Error)
	assert.Equal(t, ErrMissingHandle.Error(), results[3].Error)
}
