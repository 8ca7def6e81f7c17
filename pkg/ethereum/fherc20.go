package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum/contracts"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// ErrUnexpectedOutput is returned when a contract call decodes to an unexpected shape.
var ErrUnexpectedOutput = errors.New("unexpected contract output")

// FHERC20 exposes typed reads and writes over the token ABI.
type FHERC20 struct {
	gw Gateway
}

// NewFHERC20 wraps a gateway with typed token calls.
func NewFHERC20(gw Gateway) *FHERC20 {
	return &FHERC20{gw: gw}
}

// IsConfidentialToken probes the token's confidential marker.
func (f *FHERC20) IsConfidentialToken(ctx context.Context, tkn common.Address) (bool, error) {
	out, err := f.call(ctx, tkn, contracts.MethodIsConfidentialToken)
	if err != nil {
		return false, err
	}
	v, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, contracts.MethodIsConfidentialToken, out)
	}
	return v, nil
}

// ConfidentialBalanceOf returns the encrypted balance handle of account.
func (f *FHERC20) ConfidentialBalanceOf(ctx context.Context, tkn, account common.Address) (*big.Int, error) {
	return f.callBig(ctx, tkn, contracts.MethodConfidentialBalanceOf, account)
}

// BalanceOf returns the public balance of account. For confidential tokens
// this is the indicated balance, not the true amount.
func (f *FHERC20) BalanceOf(ctx context.Context, tkn, account common.Address) (*big.Int, error) {
	return f.callBig(ctx, tkn, contracts.MethodBalanceOf, account)
}

func (f *FHERC20) Name(ctx context.Context, tkn common.Address) (string, error) {
	return f.callString(ctx, tkn, contracts.MethodName)
}

func (f *FHERC20) Symbol(ctx context.Context, tkn common.Address) (string, error) {
	return f.callString(ctx, tkn, contracts.MethodSymbol)
}

func (f *FHERC20) Decimals(ctx context.Context, tkn common.Address) (uint8, error) {
	out, err := f.call(ctx, tkn, contracts.MethodDecimals)
	if err != nil {
		return 0, err
	}
	v, ok := out.(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, contracts.MethodDecimals, out)
	}
	return v, nil
}

// Metadata reads name, symbol and decimals in sequence.
func (f *FHERC20) Metadata(ctx context.Context, tkn common.Address) (*token.Metadata, error) {
	name, err := f.Name(ctx, tkn)
	if err != nil {
		return nil, err
	}
	symbol, err := f.Symbol(ctx, tkn)
	if err != nil {
		return nil, err
	}
	decimals, err := f.Decimals(ctx, tkn)
	if err != nil {
		return nil, err
	}
	return &token.Metadata{Address: tkn.Hex(), Name: name, Symbol: symbol, Decimals: decimals}, nil
}

// NativeBalance returns the ETH balance of account in wei.
func (f *FHERC20) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return f.gw.NativeBalance(ctx, account)
}

// Transfer submits a standard ERC-20 transfer.
func (f *FHERC20) Transfer(ctx context.Context, signer Signer, tkn, to common.Address, amount *big.Int) (common.Hash, error) {
	return f.gw.Transact(ctx, signer, tkn, contracts.MethodTransfer, to, amount)
}

// ConfidentialTransfer submits a transfer carrying an encrypted amount.
func (f *FHERC20) ConfidentialTransfer(
	ctx context.Context,
	signer Signer,
	tkn, to common.Address,
	amount cofhe.EncryptedInput,
) (common.Hash, error) {
	return f.gw.Transact(ctx, signer, tkn, contracts.MethodConfidentialTransfer, to, amount)
}

// ConfidentialApprove grants spender an encrypted allowance.
func (f *FHERC20) ConfidentialApprove(
	ctx context.Context,
	signer Signer,
	tkn, spender common.Address,
	amount cofhe.EncryptedInput,
) (common.Hash, error) {
	return f.gw.Transact(ctx, signer, tkn, contracts.MethodConfidentialApprove, spender, amount)
}

// WaitForReceipt waits for the transaction to be mined.
func (f *FHERC20) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return f.gw.WaitForReceipt(ctx, hash)
}

func (f *FHERC20) call(ctx context.Context, tkn common.Address, method string, args ...any) (any, error) {
	out, err := f.gw.Call(ctx, tkn, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrUnexpectedOutput, method, len(out))
	}
	return out[0], nil
}

func (f *FHERC20) callBig(ctx context.Context, tkn common.Address, method string, args ...any) (*big.Int, error) {
	out, err := f.call(ctx, tkn, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out.(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, method, out)
	}
	return v, nil
}

func (f *FHERC20) callString(ctx context.Context, tkn common.Address, method string) (string, error) {
	out, err := f.call(ctx, tkn, method)
	if err != nil {
		return "", err
	}
	v, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, method, out)
	}
	return v, nil
}
