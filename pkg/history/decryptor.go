// Package history decrypts encrypted transfer amounts shown in transaction history.
package history

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/confidential-wallet/internal/metrics"
	"github.com/chainsafe/confidential-wallet/pkg/account"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

const (
	defaultMemoSize    = 1024
	defaultConcurrency = 4
)

// ErrMissingHandle is returned for an item without an encrypted value.
var ErrMissingHandle = errors.New("missing encrypted value")

// Session is the part of the coprocessor session the decryptor uses.
type Session interface {
	Initialize(ctx context.Context) error
	CreatePermit(ctx context.Context, issuer common.Address) (*cofhe.Permit, error)
	Unseal(ctx context.Context, value *big.Int, utype cofhe.UType, issuer common.Address, permitHash string) (*big.Int, error)
}

// Item is one history entry carrying an encrypted amount issued by Token.
type Item struct {
	ID       string   `json:"id"`
	Token    string   `json:"token"`
	Handle   *big.Int `json:"handle"`
	Decimals uint8    `json:"decimals"`
}

// ItemResult is the decrypted value of an Item, or why it could not be decrypted.
type ItemResult struct {
	ID    string `json:"id"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Decryptor decrypts history values and memoizes successful results so a
// value already shown is not decrypted again.
type Decryptor struct {
	session     Session
	accounts    account.Provider
	memo        *lru.Cache
	concurrency int
	logger      *zap.Logger
}

// NewDecryptor creates a decryptor remembering up to memoSize values.
func NewDecryptor(session Session, accounts account.Provider, memoSize int, logger *zap.Logger) (*Decryptor, error) {
	if memoSize <= 0 {
		memoSize = defaultMemoSize
	}
	memo, err := lru.New(memoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memo: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decryptor{
		session:     session,
		accounts:    accounts,
		memo:        memo,
		concurrency: defaultConcurrency,
		logger:      logger,
	}, nil
}

// Decrypt returns the formatted value of handle. issuer is the token contract
// that produced the ciphertext. A zero handle is "0" without touching the session.
func (d *Decryptor) Decrypt(ctx context.Context, handle *big.Int, decimals uint8, issuer string) (string, error) {
	if handle == nil {
		return "", ErrMissingHandle
	}
	if handle.Sign() == 0 {
		metrics.HistoryDecryptionsTotal.WithLabelValues("zero").Inc()
		return "0", nil
	}

	key, iss, err := d.memoKey(handle, issuer)
	if err != nil {
		return "", err
	}
	if v, ok := d.memo.Get(key); ok {
		metrics.HistoryDecryptionsTotal.WithLabelValues("memo").Inc()
		return v.(string), nil
	}
	return d.decrypt(ctx, key, iss, handle, decimals)
}

// Redecrypt decrypts handle again, ignoring any memoized value.
func (d *Decryptor) Redecrypt(ctx context.Context, handle *big.Int, decimals uint8, issuer string) (string, error) {
	if handle == nil {
		return "", ErrMissingHandle
	}
	if handle.Sign() == 0 {
		return "0", nil
	}
	key, iss, err := d.memoKey(handle, issuer)
	if err != nil {
		return "", err
	}
	d.memo.Remove(key)
	return d.decrypt(ctx, key, iss, handle, decimals)
}

// DecryptItems decrypts a page of history entries concurrently. Failures are
// reported per item.
func (d *Decryptor) DecryptItems(ctx context.Context, items []Item) []ItemResult {
	results := make([]ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i].ID = item.ID
			v, err := d.Decrypt(ctx, item.Handle, item.Decimals, item.Token)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Value = v
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Decryptor) decrypt(ctx context.Context, key string, issuer common.Address, handle *big.Int, decimals uint8) (string, error) {
	if err := d.session.Initialize(ctx); err != nil {
		return "", d.failed(issuer, err)
	}
	permit, err := d.session.CreatePermit(ctx, issuer)
	if err != nil {
		return "", d.failed(issuer, err)
	}

	start := time.Now()
	raw, err := d.session.Unseal(ctx, handle, cofhe.Uint64, issuer, permit.Hash)
	metrics.UnsealDuration.WithLabelValues("history").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", d.failed(issuer, err)
	}
	if raw == nil {
		return "", d.failed(issuer, errors.New("empty unseal result"))
	}

	v := token.FormatUnits(raw, decimals)
	d.memo.Add(key, v)
	metrics.HistoryDecryptionsTotal.WithLabelValues("unseal").Inc()
	return v, nil
}

func (d *Decryptor) failed(issuer common.Address, err error) error {
	metrics.HistoryDecryptionsTotal.WithLabelValues("error").Inc()
	d.logger.Debug("History value decryption failed", zap.String("issuer", issuer.Hex()), zap.Error(err))
	return err
}

// memoKey scopes memoized values to the active account and issuer.
func (d *Decryptor) memoKey(handle *big.Int, issuer string) (string, common.Address, error) {
	iss, err := ethereum.ParseAddress(issuer)
	if err != nil {
		return "", common.Address{}, err
	}
	acc, err := d.accounts.Active()
	if err != nil {
		return "", common.Address{}, err
	}
	return ethereum.NormalizeKey(acc.Address()) + "/" + ethereum.NormalizeKey(iss) + "/" + handle.Text(16), iss, nil
}

// Forget drops every memoized value.
func (d *Decryptor) Forget() {
	d.memo.Purge()
}
