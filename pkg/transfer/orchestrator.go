// Package transfer submits token transfers and confidential approvals and
// tracks them through pending, confirming and final states.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/chainsafe/confidential-wallet/internal/metrics"
	"github.com/chainsafe/confidential-wallet/pkg/account"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

var (
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrTransferInProgress  = errors.New("transfer already in progress")
	ErrInsufficientBalance = errors.New("amount exceeds balance")
	ErrAmountOutOfRange    = errors.New("amount exceeds the confidential transfer range")
)

// maxConfidentialUnits is the largest amount an encrypted uint64 carries.
var maxConfidentialUnits = new(big.Int).SetUint64(math.MaxUint64)

const (
	kindConfidentialTransfer = "confidential_transfer"
	kindConfidentialApprove  = "confidential_approve"
	kindStandardTransfer     = "standard_transfer"
)

// Request is a transfer or approval request. Counterparty is the recipient of
// a transfer or the spender of an approval. KnownBalance, when set, bounds
// standard transfers.
type Request struct {
	Token        string `json:"token"`
	Counterparty string `json:"to"`
	Amount       string `json:"amount"`
	KnownBalance string `json:"knownBalance,omitempty"`
}

// Session is the part of the coprocessor session used for encryption.
type Session interface {
	Initialize(ctx context.Context) error
	Encrypt(ctx context.Context, items []cofhe.Encryptable) ([]cofhe.EncryptedInput, error)
}

// Contract is the token write surface. *ethereum.FHERC20 satisfies it.
type Contract interface {
	Decimals(ctx context.Context, tkn common.Address) (uint8, error)
	Transfer(ctx context.Context, signer ethereum.Signer, tkn, to common.Address, amount *big.Int) (common.Hash, error)
	ConfidentialTransfer(ctx context.Context, signer ethereum.Signer, tkn, to common.Address, amount cofhe.EncryptedInput) (common.Hash, error)
	ConfidentialApprove(ctx context.Context, signer ethereum.Signer, tkn, spender common.Address, amount cofhe.EncryptedInput) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Classifier resolves the token type for Send.
type Classifier interface {
	Classify(ctx context.Context, address string) (token.Type, error)
}

// Orchestrator is one transfer state machine.
type Orchestrator struct {
	accounts   account.Provider
	session    Session
	contract   Contract
	classifier Classifier
	logger     *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewOrchestrator creates an orchestrator in the Idle state. classifier may be
// nil when Send is not used.
func NewOrchestrator(
	accounts account.Provider,
	session Session,
	contract Contract,
	classifier Classifier,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		accounts:   accounts,
		session:    session,
		contract:   contract,
		classifier: classifier,
		logger:     logger,
		state:      State{Status: StatusIdle},
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Reset returns the machine to Idle and clears hash and error. It has no
// effect while a transaction is in progress.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Status.Busy() {
		return
	}
	o.state = State{Status: StatusIdle}
}

// Transfer sends an encrypted amount to req.Counterparty.
func (o *Orchestrator) Transfer(ctx context.Context, req Request) (common.Hash, error) {
	return o.confidential(ctx, kindConfidentialTransfer, req, o.contract.ConfidentialTransfer)
}

// Approve grants req.Counterparty an encrypted allowance.
func (o *Orchestrator) Approve(ctx context.Context, req Request) (common.Hash, error) {
	return o.confidential(ctx, kindConfidentialApprove, req, o.contract.ConfidentialApprove)
}

// Send classifies the token and takes the confidential or the standard path.
func (o *Orchestrator) Send(ctx context.Context, req Request) (common.Hash, error) {
	if o.classifier == nil {
		return common.Hash{}, errors.New("send requires a token classifier")
	}
	if _, _, _, err := o.validate(req); err != nil {
		return common.Hash{}, o.reject(err)
	}
	t, err := o.classifier.Classify(ctx, req.Token)
	if err != nil {
		return common.Hash{}, o.reject(err)
	}
	if t.IsConfidential() {
		return o.Transfer(ctx, req)
	}
	return o.standard(ctx, req)
}

type submitFunc func(ctx context.Context, signer ethereum.Signer, tkn, to common.Address, amount cofhe.EncryptedInput) (common.Hash, error)

func (o *Orchestrator) confidential(ctx context.Context, kind string, req Request, submit submitFunc) (common.Hash, error) {
	acc, tkn, to, err := o.validate(req)
	if err != nil {
		return common.Hash{}, o.reject(err)
	}
	if err := o.begin(); err != nil {
		return common.Hash{}, err
	}
	start := time.Now()
	// From Pending on the outcome is recorded on the machine, so the caller
	// going away must not turn a broadcast transaction into an error.
	ctx = context.WithoutCancel(ctx)

	if err := o.session.Initialize(ctx); err != nil {
		return o.fail(kind, err)
	}

	raw, err := o.resolveAmount(ctx, tkn, req.Amount)
	if err != nil {
		return o.fail(kind, err)
	}
	if !cofhe.Uint64.Fits(raw) {
		return o.fail(kind, fmt.Errorf("%w: %s is above %s smallest units", ErrAmountOutOfRange, req.Amount, maxConfidentialUnits))
	}

	inputs, err := o.session.Encrypt(ctx, []cofhe.Encryptable{{Value: raw, UType: cofhe.Uint64}})
	if err != nil {
		return o.fail(kind, err)
	}
	if len(inputs) != 1 {
		return o.fail(kind, fmt.Errorf("failed to encrypt value: got %d ciphertexts", len(inputs)))
	}

	hash, err := submit(ctx, acc, tkn, to, inputs[0])
	if err != nil {
		return o.fail(kind, err)
	}
	return o.confirm(ctx, kind, hash, start)
}

func (o *Orchestrator) standard(ctx context.Context, req Request) (common.Hash, error) {
	const kind = kindStandardTransfer

	acc, tkn, to, err := o.validate(req)
	if err != nil {
		return common.Hash{}, o.reject(err)
	}
	if req.KnownBalance != "" {
		cmp, err := token.CompareAmounts(req.Amount, req.KnownBalance)
		if err != nil {
			return common.Hash{}, o.reject(err)
		}
		if cmp > 0 {
			return common.Hash{}, o.reject(ErrInsufficientBalance)
		}
	}
	if err := o.begin(); err != nil {
		return common.Hash{}, err
	}
	start := time.Now()
	// From Pending on the outcome is recorded on the machine, so the caller
	// going away must not turn a broadcast transaction into an error.
	ctx = context.WithoutCancel(ctx)

	raw, err := o.resolveAmount(ctx, tkn, req.Amount)
	if err != nil {
		return o.fail(kind, err)
	}

	hash, err := o.contract.Transfer(ctx, acc, tkn, to, raw)
	if err != nil {
		return o.fail(kind, err)
	}
	return o.confirm(ctx, kind, hash, start)
}

// validate runs every check that needs no I/O.
func (o *Orchestrator) validate(req Request) (*account.Account, common.Address, common.Address, error) {
	acc, err := o.accounts.Active()
	if err != nil {
		return nil, common.Address{}, common.Address{}, err
	}
	tkn, err := ethereum.ParseAddress(req.Token)
	if err != nil {
		return nil, common.Address{}, common.Address{}, fmt.Errorf("token: %w", err)
	}
	to, err := ethereum.ParseAddress(req.Counterparty)
	if err != nil {
		return nil, common.Address{}, common.Address{}, fmt.Errorf("recipient: %w", err)
	}
	if err := token.ValidateAmount(req.Amount); err != nil {
		return nil, common.Address{}, common.Address{}, err
	}
	return acc, tkn, to, nil
}

func (o *Orchestrator) resolveAmount(ctx context.Context, tkn common.Address, amount string) (*big.Int, error) {
	decimals, err := o.contract.Decimals(ctx, tkn)
	if err != nil {
		return nil, fmt.Errorf("failed to read decimals: %w", err)
	}
	return token.ParseUnits(amount, decimals)
}

// reject records a validation failure without leaving Idle.
func (o *Orchestrator) reject(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.state.Status.Busy() {
		o.state = State{Status: StatusIdle, Error: err.Error()}
	}
	return err
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Status.Busy() {
		return ErrTransferInProgress
	}
	o.state = State{Status: StatusPending}
	return nil
}

func (o *Orchestrator) confirm(ctx context.Context, kind string, hash common.Hash, start time.Time) (common.Hash, error) {
	o.mu.Lock()
	o.state = State{Status: StatusConfirming, Hash: hash}
	o.mu.Unlock()

	o.logger.Info("Transaction submitted, awaiting receipt",
		zap.String("kind", kind),
		zap.String("tx_hash", hash.Hex()))

	receipt, err := o.contract.WaitForReceipt(ctx, hash)
	if err != nil {
		return o.fail(kind, fmt.Errorf("%w: %v", ErrTransactionFailed, err))
	}
	if receipt == nil || receipt.Status != types.ReceiptStatusSuccessful {
		return o.fail(kind, fmt.Errorf("%w: reverted in tx %s", ErrTransactionFailed, hash.Hex()))
	}

	o.mu.Lock()
	o.state = State{Status: StatusSuccess, Hash: hash}
	o.mu.Unlock()

	metrics.TransfersTotal.WithLabelValues(kind, string(StatusSuccess)).Inc()
	metrics.TransferDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	o.logger.Info("Transaction confirmed",
		zap.String("kind", kind),
		zap.String("tx_hash", hash.Hex()),
		zap.Stringer("block", receipt.BlockNumber))
	return hash, nil
}

// fail moves the machine to Error, keeping any recorded hash.
func (o *Orchestrator) fail(kind string, err error) (common.Hash, error) {
	o.mu.Lock()
	o.state.Status = StatusError
	o.state.Error = err.Error()
	hash := o.state.Hash
	o.mu.Unlock()

	metrics.TransfersTotal.WithLabelValues(kind, string(StatusError)).Inc()
	o.logger.Warn("Transfer failed", zap.String("kind", kind), zap.String("tx_hash", hash.Hex()), zap.Error(err))
	return hash, err
}
