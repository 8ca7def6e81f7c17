package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer is the signing capability of the active account as seen by the gateway.
type Signer interface {
	Address() common.Address
	Transactor(chainID *big.Int) (*bind.TransactOpts, error)
}

// Gateway is the chain access surface the wallet core depends on.
// ethtest.Chain is an in-memory implementation for tests.
type Gateway interface {
	// Call performs a read-only contract call and returns the decoded outputs.
	Call(ctx context.Context, contract common.Address, method string, args ...any) ([]any, error)

	// Transact signs and submits a contract call with the given signer.
	Transact(ctx context.Context, signer Signer, contract common.Address, method string, args ...any) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is mined or ctx is done.
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// NativeBalance returns the latest ETH balance of account in wei.
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
}
