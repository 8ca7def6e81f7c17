// Package balance reads confidential token balances and drives the
// permit-and-unseal sequence that turns an encrypted handle into a display value.
package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// Contract is the token read surface the reader needs. *ethereum.FHERC20 satisfies it.
type Contract interface {
	ConfidentialBalanceOf(ctx context.Context, tkn, account common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, tkn, account common.Address) (*big.Int, error)
	Metadata(ctx context.Context, tkn common.Address) (*token.Metadata, error)
}

// Reader performs uncached balance reads.
type Reader struct {
	contract Contract
}

// NewReader creates a reader over contract.
func NewReader(contract Contract) *Reader {
	return &Reader{contract: contract}
}

// ReadIndicated returns the public indicated balance formatted with four decimals.
func (r *Reader) ReadIndicated(ctx context.Context, tokenAddr, accountAddr string) (string, error) {
	tkn, acc, err := parsePair(tokenAddr, accountAddr)
	if err != nil {
		return "", err
	}
	raw, err := r.contract.BalanceOf(ctx, tkn, acc)
	if err != nil {
		return "", fmt.Errorf("failed to read indicated balance: %w", err)
	}
	return token.FormatIndicated(raw), nil
}

// ReadEncryptedHandle returns the encrypted balance handle. Zero means a real zero balance.
func (r *Reader) ReadEncryptedHandle(ctx context.Context, tokenAddr, accountAddr string) (*big.Int, error) {
	tkn, acc, err := parsePair(tokenAddr, accountAddr)
	if err != nil {
		return nil, err
	}
	handle, err := r.contract.ConfidentialBalanceOf(ctx, tkn, acc)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted balance: %w", err)
	}
	return handle, nil
}

// ReadMetadata returns name, symbol and decimals of the token.
func (r *Reader) ReadMetadata(ctx context.Context, tokenAddr string) (*token.Metadata, error) {
	tkn, err := ethereum.ParseAddress(tokenAddr)
	if err != nil {
		return nil, err
	}
	md, err := r.contract.Metadata(ctx, tkn)
	if err != nil {
		return nil, fmt.Errorf("failed to read token metadata: %w", err)
	}
	return md, nil
}

func parsePair(tokenAddr, accountAddr string) (common.Address, common.Address, error) {
	tkn, err := ethereum.ParseAddress(tokenAddr)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	acc, err := ethereum.ParseAddress(accountAddr)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return tkn, acc, nil
}
