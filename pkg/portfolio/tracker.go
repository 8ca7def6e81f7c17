package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/chainsafe/confidential-wallet/internal/metrics"
	"github.com/chainsafe/confidential-wallet/pkg/account"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
	"github.com/chainsafe/confidential-wallet/pkg/tokenstore"
)

const (
	defaultStaleAfter  = 10 * time.Minute
	defaultConcurrency = 8
)

// Contract reads public token balances.
type Contract interface {
	BalanceOf(ctx context.Context, tkn, account common.Address) (*big.Int, error)
}

// NativeBalancer reads the ETH balance of an account. *ethereum.FHERC20 satisfies it.
type NativeBalancer interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// TokenLister lists the custom tokens to value.
type TokenLister interface {
	ListTokens(ctx context.Context) ([]*tokenstore.CustomToken, error)
}

type settings struct {
	logger     *zap.Logger
	cache      Cache
	prices     PriceSource
	staleAfter time.Duration
	now        func() time.Time
	native     NativeBalancer
	nativeUSD  decimal.Decimal
}

// Option configures a Tracker.
type Option func(*settings)

// WithLogger sets a custom logger for the tracker.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithCache sets the snapshot cache. Defaults to a MemoryCache of twice the staleness window.
func WithCache(c Cache) Option {
	return func(s *settings) { s.cache = c }
}

// WithPrices sets the price source. Defaults to 1 USD per token.
func WithPrices(p PriceSource) Option {
	return func(s *settings) { s.prices = p }
}

// WithStaleAfter sets how long a cached snapshot is served without recomputing.
func WithStaleAfter(d time.Duration) Option {
	return func(s *settings) { s.staleAfter = d }
}

// WithNativeBalance values the account's ETH balance at priceUSD per ETH.
// Without it the ETH fields of a snapshot stay zero.
func WithNativeBalance(n NativeBalancer, priceUSD decimal.Decimal) Option {
	return func(s *settings) {
		s.native = n
		s.nativeUSD = priceUSD
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// Tracker computes and caches portfolio snapshots of the active account.
// The ETH balance and standard or not yet classified tokens are valued:
// confidential balances are not readable without decryption.
type Tracker struct {
	accounts   account.Provider
	tokens     TokenLister
	contract   Contract
	native     NativeBalancer
	nativeUSD  decimal.Decimal
	cache      Cache
	prices     PriceSource
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
	flight     singleflight.Group
}

// NewTracker creates a portfolio tracker
func NewTracker(accounts account.Provider, tokens TokenLister, contract Contract, opts ...Option) *Tracker {
	s := settings{
		logger:     zap.NewNop(),
		staleAfter: defaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.cache == nil {
		s.cache = NewMemoryCache(2 * s.staleAfter)
	}
	if s.prices == nil {
		s.prices = &StaticPrices{fallback: decimal.NewFromInt(1)}
	}

	return &Tracker{
		accounts:   accounts,
		tokens:     tokens,
		contract:   contract,
		native:     s.native,
		nativeUSD:  s.nativeUSD,
		cache:      s.cache,
		prices:     s.prices,
		staleAfter: s.staleAfter,
		now:        s.now,
		logger:     s.logger,
	}
}

// Value returns the portfolio of the active account. A cached snapshot younger
// than the staleness window is returned unless force is set.
func (t *Tracker) Value(ctx context.Context, force bool) (*Snapshot, error) {
	acc, err := t.accounts.Active()
	if errors.Is(err, account.ErrNoActiveAccount) {
		return &Snapshot{
			NativeBalance:  "0",
			NativePriceUSD: t.nativeUSD.String(),
			NativeValueUSD: "0",
			Holdings:       []Holding{},
			TotalUSD:       "0",
			LastUpdated:    t.now().UTC(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	tokens, err := t.valuedTokens(ctx)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(tokens))
	for _, tkn := range tokens {
		addrs = append(addrs, tkn.Address)
	}
	key := cacheKey(acc.Address().Hex(), addrs)

	if !force {
		snap, err := t.cache.Get(ctx, key)
		switch {
		case err == nil && t.now().Sub(snap.LastUpdated) < t.staleAfter:
			return snap, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			t.logger.Warn("Portfolio cache read failed", zap.Error(err))
		}
	}

	v, err, _ := t.flight.Do(key, func() (any, error) {
		snap, err := t.compute(ctx, acc.Address(), tokens)
		if err != nil {
			metrics.PortfolioRefreshesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.PortfolioRefreshesTotal.WithLabelValues("success").Inc()
		if err := t.cache.Set(ctx, key, snap); err != nil {
			t.logger.Warn("Portfolio cache write failed", zap.Error(err))
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// valuedTokens returns the deduplicated custom tokens whose balances are public,
// sorted by lowercase address.
func (t *Tracker) valuedTokens(ctx context.Context) ([]*tokenstore.CustomToken, error) {
	all, err := t.tokens.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	seen := make(map[string]bool, len(all))
	out := make([]*tokenstore.CustomToken, 0, len(all))
	for _, tkn := range all {
		if tkn.Type == token.Confidential {
			continue
		}
		addr := ethereum.NormalizeAddress(tkn.Address)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		cp := *tkn
		cp.Address = addr
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// compute reads every balance concurrently. Tokens whose balance cannot be
// read are left out of the snapshot; a failed ETH balance read fails it.
func (t *Tracker) compute(ctx context.Context, owner common.Address, tokens []*tokenstore.CustomToken) (*Snapshot, error) {
	holdings := make([]*Holding, len(tokens))
	nativeWei := new(big.Int)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	if t.native != nil {
		g.Go(func() error {
			wei, err := t.native.NativeBalance(gctx, owner)
			if err != nil {
				return fmt.Errorf("failed to read ETH balance: %w", err)
			}
			if wei != nil {
				nativeWei = wei
			}
			return nil
		})
	}
	for i, tkn := range tokens {
		g.Go(func() error {
			raw, err := t.contract.BalanceOf(gctx, common.HexToAddress(tkn.Address), owner)
			if err != nil {
				t.logger.Warn("Skipping token in portfolio",
					zap.String("token", tkn.Address),
					zap.Error(err))
				return nil
			}
			bal := decimal.NewFromBigInt(raw, -int32(tkn.Decimals))
			price := t.prices.PriceUSD(tkn.Address)
			holdings[i] = &Holding{
				Address:  tkn.Address,
				Name:     tkn.Name,
				Symbol:   tkn.Symbol,
				Decimals: tkn.Decimals,
				Balance:  token.FormatUnits(raw, tkn.Decimals),
				PriceUSD: price.String(),
				ValueUSD: bal.Mul(price).StringFixed(2),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nativeValue := decimal.NewFromBigInt(nativeWei, -NativeDecimals).Mul(t.nativeUSD)
	snap := &Snapshot{
		Account:        owner.Hex(),
		NativeBalance:  token.FormatUnits(nativeWei, NativeDecimals),
		NativePriceUSD: t.nativeUSD.String(),
		NativeValueUSD: nativeValue.StringFixed(2),
		Holdings:       make([]Holding, 0, len(tokens)),
		LastUpdated:    t.now().UTC(),
	}
	total, _ := decimal.NewFromString(snap.NativeValueUSD)
	for _, h := range holdings {
		if h == nil {
			continue
		}
		v, _ := decimal.NewFromString(h.ValueUSD)
		total = total.Add(v)
		snap.Holdings = append(snap.Holdings, *h)
	}
	snap.TotalUSD = total.StringFixed(2)
	return snap, nil
}

// Handle controls a scheduled refresh.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the schedule and waits for an in-flight refresh to return.
// It is safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Schedule refreshes the portfolio every interval until the returned handle is
// stopped or ctx is done. Each refresh is bounded by timeout.
func (t *Tracker) Schedule(ctx context.Context, interval, timeout time.Duration) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		t.logger.Info("Started periodic portfolio refresh", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				t.refresh(ctx, timeout)
			case <-ctx.Done():
				t.logger.Info("Stopping periodic portfolio refresh")
				return
			}
		}
	}()

	return h
}

func (t *Tracker) refresh(ctx context.Context, timeout time.Duration) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if _, err := t.Value(ctx, true); err != nil {
		t.logger.Error("Periodic portfolio refresh failed", zap.Error(err))
	}
}
