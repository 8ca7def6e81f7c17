// Package ethtest provides an in-memory chain implementing ethereum.Gateway
// over the FHERC20 ABI surface.
package ethtest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum/contracts"
)

// ErrReverted mimics an execution revert.
var ErrReverted = errors.New("execution reverted")

// Token is the state of one token contract.
type Token struct {
	Confidential bool
	Name         string
	Symbol       string
	Decimals     uint8

	// Handles are encrypted balance handles returned by confidentialBalanceOf.
	Handles map[common.Address]*big.Int
	// Balances are balanceOf results; the indicated balance for confidential tokens.
	Balances map[common.Address]*big.Int
}

// Tx is a submitted transaction.
type Tx struct {
	Hash     common.Hash
	From     common.Address
	Contract common.Address
	Method   string
	Args     []any
}

// Chain is an in-memory ethereum.Gateway.
type Chain struct {
	mu      sync.Mutex
	tokens  map[common.Address]*Token
	txs     []Tx
	calls   map[string]int
	callErr map[string]error

	// SubmitErr fails every Transact when set.
	SubmitErr error
	// ReceiptStatus is the status of mined receipts; defaults to successful.
	ReceiptStatus *uint64
	// ReceiptErr fails every WaitForReceipt when set.
	ReceiptErr error
	// BeforeCall, when set, runs before every Call is served.
	BeforeCall func(method string)
	// NativeErr fails every NativeBalance when set.
	NativeErr error

	native map[common.Address]*big.Int
}

var _ ethereum.Gateway = (*Chain)(nil)

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{
		tokens:  make(map[common.Address]*Token),
		calls:   make(map[string]int),
		callErr: make(map[string]error),
		native:  make(map[common.Address]*big.Int),
	}
}

// SetNativeBalance sets the ETH balance of account in wei.
func (c *Chain) SetNativeBalance(account common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[account] = new(big.Int).Set(wei)
}

func (c *Chain) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.NativeErr != nil {
		return nil, c.NativeErr
	}
	if v, ok := c.native[account]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// AddToken deploys tkn at addr.
func (c *Chain) AddToken(addr common.Address, tkn *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tkn.Handles == nil {
		tkn.Handles = make(map[common.Address]*big.Int)
	}
	if tkn.Balances == nil {
		tkn.Balances = make(map[common.Address]*big.Int)
	}
	c.tokens[addr] = tkn
}

// FailCall makes every call of method fail with err. A nil err clears it.
func (c *Chain) FailCall(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.callErr, method)
		return
	}
	c.callErr[method] = err
}

// Calls returns how many times method was called.
func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Transactions returns the submitted transactions in order.
func (c *Chain) Transactions() []Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Tx(nil), c.txs...)
}

func (c *Chain) Call(_ context.Context, contract common.Address, method string, args ...any) ([]any, error) {
	if c.BeforeCall != nil {
		c.BeforeCall(method)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++

	if err := c.callErr[method]; err != nil {
		return nil, err
	}
	tkn, ok := c.tokens[contract]
	if !ok {
		return nil, fmt.Errorf("no contract code at %s", contract.Hex())
	}

	switch method {
	case contracts.MethodIsConfidentialToken:
		if !tkn.Confidential {
			return nil, ErrReverted
		}
		return []any{true}, nil
	case contracts.MethodConfidentialBalanceOf:
		if !tkn.Confidential {
			return nil, ErrReverted
		}
		return []any{valueOf(tkn.Handles, args)}, nil
	case contracts.MethodBalanceOf:
		return []any{valueOf(tkn.Balances, args)}, nil
	case contracts.MethodName:
		return []any{tkn.Name}, nil
	case contracts.MethodSymbol:
		return []any{tkn.Symbol}, nil
	case contracts.MethodDecimals:
		return []any{tkn.Decimals}, nil
	default:
		return nil, fmt.Errorf("method %q not found", method)
	}
}

func (c *Chain) Transact(
	_ context.Context,
	signer ethereum.Signer,
	contract common.Address,
	method string,
	args ...any,
) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++

	if c.SubmitErr != nil {
		return common.Hash{}, c.SubmitErr
	}
	if _, ok := c.tokens[contract]; !ok {
		return common.Hash{}, fmt.Errorf("no contract code at %s", contract.Hex())
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(len(c.txs)+1))
	tx := Tx{
		Hash:     crypto.Keccak256Hash(contract.Bytes(), []byte(method), seq[:]),
		From:     signer.Address(),
		Contract: contract,
		Method:   method,
		Args:     args,
	}
	c.txs = append(c.txs, tx)
	return tx.Hash, nil
}

func (c *Chain) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReceiptErr != nil {
		return nil, c.ReceiptErr
	}
	for _, tx := range c.txs {
		if tx.Hash == hash {
			status := types.ReceiptStatusSuccessful
			if c.ReceiptStatus != nil {
				status = *c.ReceiptStatus
			}
			return &types.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(1)}, nil
		}
	}
	return nil, fmt.Errorf("unknown transaction %s", hash.Hex())
}

func valueOf(m map[common.Address]*big.Int, args []any) *big.Int {
	if len(args) != 1 {
		return new(big.Int)
	}
	addr, ok := args[0].(common.Address)
	if !ok {
		return new(big.Int)
	}
	if v, ok := m[addr]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Status returns a pointer for Chain.ReceiptStatus.
func Status(s uint64) *uint64 {
	return &s
}
