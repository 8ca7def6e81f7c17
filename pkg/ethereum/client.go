package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/chainsafe/confidential-wallet/pkg/config"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum/contracts"
)

// Backend is the RPC surface the client needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type settings struct {
	logger *zap.Logger
}

// Option configures the Ethereum client.
type Option func(*settings)

// WithLogger sets a custom logger for the client.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Client is the production Gateway backed by a JSON-RPC node
type Client struct {
	cfg     *config.EthereumConfig
	backend Backend
	closer  func()
	abi     abi.ABI
	chainID *big.Int
	logger  *zap.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient dials the configured RPC endpoint and returns a gateway client
func NewClient(cfg *config.EthereumConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil ethereum config")
	}
	rpc, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	c, err := NewClientWithBackend(cfg, rpc, opts...)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	c.closer = rpc.Close

	c.logger.Info("Connected to Ethereum",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL))

	return c, nil
}

// NewClientWithBackend builds a client over an existing backend
func NewClientWithBackend(cfg *config.EthereumConfig, backend Backend, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil ethereum config")
	}
	if backend == nil {
		return nil, fmt.Errorf("nil ethereum backend")
	}
	parsed, err := contracts.FHERC20MetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to parse FHERC20 ABI: %w", err)
	}

	s := applyOptions(opts)
	return &Client{
		cfg:     cfg,
		backend: backend,
		abi:     *parsed,
		chainID: big.NewInt(cfg.ChainID),
		logger:  s.logger,
	}, nil
}

// Close closes the RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) bound(contract common.Address) *bind.BoundContract {
	return bind.NewBoundContract(contract, c.abi, c.backend, c.backend, c.backend)
}

// Call performs a read-only contract call
func (c *Client) Call(ctx context.Context, contract common.Address, method string, args ...any) ([]any, error) {
	var out []any
	if err := c.bound(contract).Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Hex(), err)
	}
	return out, nil
}

// Transact signs and submits a contract call
func (c *Client) Transact(
	ctx context.Context,
	signer Signer,
	contract common.Address,
	method string,
	args ...any,
) (common.Hash, error) {
	auth, err := c.transactor(ctx, signer)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := c.bound(contract).Transact(auth, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to submit %s transaction: %w", method, err)
	}

	c.logger.Info("Transaction submitted",
		zap.String("method", method),
		zap.String("contract", contract.Hex()),
		zap.String("from", signer.Address().Hex()),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	return tx.Hash(), nil
}

// transactor returns signing options with nonce, gas limit and capped gas price
func (c *Client) transactor(ctx context.Context, signer Signer) (*bind.TransactOpts, error) {
	if signer == nil {
		return nil, fmt.Errorf("nil signer")
	}
	auth, err := signer.Transactor(c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	nonce, err := c.backend.PendingNonceAt(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.GasLimit = c.cfg.GasLimit

	if c.cfg.MaxGasPrice != "" {
		maxGasPrice, ok := new(big.Int).SetString(c.cfg.MaxGasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("invalid max gas price %q", c.cfg.MaxGasPrice)
		}

		gasPrice, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}

		if gasPrice.Cmp(maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", maxGasPrice.String()))
			auth.GasPrice = maxGasPrice
		} else {
			auth.GasPrice = gasPrice
		}
	}

	return auth, nil
}

// NativeBalance returns the latest ETH balance of account
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("get balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

// WaitForReceipt polls for the transaction receipt until it is mined,
// the receipt timeout elapses or ctx is done
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if c.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReceiptTimeout)
		defer cancel()
	}

	interval := c.cfg.ReceiptPollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			c.logger.Debug("Transaction mined",
				zap.String("tx_hash", hash.Hex()),
				zap.Uint64("status", receipt.Status))
			return receipt, nil
		}
		if !errors.Is(err, geth.NotFound) {
			c.logger.Warn("Failed to fetch receipt", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
