package balance

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/chainsafe/confidential-wallet/internal/metrics"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// Messages stored on Result.Error for the decrypt steps.
const (
	MsgPermitCreationFailed = "failed to create permit"
	MsgUnsealFailed         = "failed to unseal balance"
)

// Status is the fetch state of one (token, account) pair.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusDecrypting Status = "decrypting"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Result is the displayable balance of one (token, account) pair. Balance is
// empty while unknown; IndicatedBalance is kept even when a later step fails.
type Result struct {
	Status           Status   `json:"status"`
	Balance          string   `json:"balance,omitempty"`
	BalanceRaw       *big.Int `json:"balanceRaw,omitempty"`
	IndicatedBalance string   `json:"indicatedBalance,omitempty"`
	Decimals         uint8    `json:"decimals"`
	Name             string   `json:"name,omitempty"`
	Symbol           string   `json:"symbol,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Session is the part of the coprocessor session the fetcher uses.
type Session interface {
	Initialize(ctx context.Context) error
	CreatePermit(ctx context.Context, issuer common.Address) (*cofhe.Permit, error)
	Unseal(ctx context.Context, value *big.Int, utype cofhe.UType, issuer common.Address, permitHash string) (*big.Int, error)
}

type entry struct {
	gen    uint64
	result Result
}

// Fetcher runs the balance decryption sequence per (token, account) pair and
// keeps the latest state of each pair.
type Fetcher struct {
	reader  *Reader
	session Session
	logger  *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	states  map[string]*entry
	nextGen uint64
}

// NewFetcher creates a fetcher.
func NewFetcher(reader *Reader, session Session, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		reader:  reader,
		session: session,
		logger:  logger,
		states:  make(map[string]*entry),
	}
}

func pairKey(tokenAddr, accountAddr string) string {
	return ethereum.NormalizeAddress(tokenAddr) + "/" + ethereum.NormalizeAddress(accountAddr)
}

// Fetch runs the balance sequence for the pair. An empty token or account
// resets the pair to idle. Concurrent calls for the same pair share one run.
func (f *Fetcher) Fetch(ctx context.Context, tokenAddr, accountAddr string) Result {
	if tokenAddr == "" || accountAddr == "" {
		f.Forget(tokenAddr, accountAddr)
		return Result{Status: StatusIdle}
	}

	key := pairKey(tokenAddr, accountAddr)
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return f.run(shared, key, tokenAddr, accountAddr), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return f.State(tokenAddr, accountAddr)
	}
}

// Refetch reruns the sequence unconditionally; it only joins a run already in flight.
func (f *Fetcher) Refetch(ctx context.Context, tokenAddr, accountAddr string) Result {
	return f.Fetch(ctx, tokenAddr, accountAddr)
}

// State returns the latest state of the pair.
func (f *Fetcher) State(tokenAddr, accountAddr string) Result {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if e, ok := f.states[pairKey(tokenAddr, accountAddr)]; ok {
		return e.result
	}
	return Result{Status: StatusIdle}
}

// Forget drops the state of the pair. Updates from a run still in flight for
// it are discarded.
func (f *Fetcher) Forget(tokenAddr, accountAddr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, pairKey(tokenAddr, accountAddr))
}

func (f *Fetcher) begin(key string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextGen++
	f.states[key] = &entry{gen: f.nextGen, result: Result{Status: StatusLoading}}
	return f.nextGen
}

// publish stores r if the run that produced it is still the current one.
func (f *Fetcher) publish(key string, gen uint64, r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.states[key]; ok && e.gen == gen {
		e.result = r
	}
}

func (f *Fetcher) run(ctx context.Context, key, tokenAddr, accountAddr string) Result {
	gen := f.begin(key)
	r := Result{Status: StatusLoading}

	fail := func(msg string, err error) Result {
		r.Status = StatusError
		r.Error = msg
		f.publish(key, gen, r)
		metrics.BalanceFetchesTotal.WithLabelValues(string(StatusError)).Inc()
		f.logger.Warn("Balance fetch failed",
			zap.String("token", tokenAddr),
			zap.String("account", accountAddr),
			zap.String("reason", msg),
			zap.Error(err))
		return r
	}

	acc, err := ethereum.ParseAddress(accountAddr)
	if err != nil {
		return fail(err.Error(), err)
	}
	if _, err := ethereum.ParseAddress(tokenAddr); err != nil {
		return fail(err.Error(), err)
	}

	if err := f.session.Initialize(ctx); err != nil {
		return fail(err.Error(), err)
	}

	var (
		md      *token.Metadata
		metaErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		md, metaErr = f.reader.ReadMetadata(ctx, tokenAddr)
		return metaErr
	})
	g.Go(func() error {
		indicated, err := f.reader.ReadIndicated(ctx, tokenAddr, accountAddr)
		if err != nil {
			return err
		}
		// Published right away so the hint survives a later failure.
		r.IndicatedBalance = indicated
		f.publish(key, gen, r)
		return nil
	})
	err = g.Wait()
	if metaErr == nil && md != nil {
		r.Decimals, r.Name, r.Symbol = md.Decimals, md.Name, md.Symbol
	}
	if err != nil {
		return fail(err.Error(), err)
	}
	f.publish(key, gen, r)

	handle, err := f.reader.ReadEncryptedHandle(ctx, tokenAddr, accountAddr)
	if err != nil {
		return fail(err.Error(), err)
	}
	if handle.Sign() == 0 {
		r.Status = StatusReady
		r.Balance = "0"
		r.BalanceRaw = new(big.Int)
		f.publish(key, gen, r)
		metrics.BalanceFetchesTotal.WithLabelValues("zero").Inc()
		return r
	}

	r.Status = StatusDecrypting
	f.publish(key, gen, r)

	permit, err := f.session.CreatePermit(ctx, acc)
	if err != nil {
		return fail(MsgPermitCreationFailed, err)
	}

	start := time.Now()
	raw, err := f.session.Unseal(ctx, handle, cofhe.Uint64, acc, permit.Hash)
	metrics.UnsealDuration.WithLabelValues("balance").Observe(time.Since(start).Seconds())
	if err == nil && raw == nil {
		err = errors.New("empty unseal result")
	}
	if err != nil {
		return fail(MsgUnsealFailed, err)
	}

	r.Status = StatusReady
	r.BalanceRaw = raw
	r.Balance = token.FormatUnits(raw, r.Decimals)
	f.publish(key, gen, r)
	metrics.BalanceFetchesTotal.WithLabelValues(string(StatusReady)).Inc()
	return r
}
