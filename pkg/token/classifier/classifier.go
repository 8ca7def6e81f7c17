// Package classifier decides whether a token contract is a standard ERC-20 or
// a confidential FHERC20 by probing its isConfidentialToken marker.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/confidential-wallet/internal/metrics"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/token"
)

// ErrClassificationAmbiguous marks a probe that neither confirmed nor denied
// the confidential marker. It is logged and the token treated as Standard.
var ErrClassificationAmbiguous = errors.New("token classification ambiguous")

const defaultBatchConcurrency = 8

// Prober reads the confidential marker of a token contract.
type Prober interface {
	IsConfidentialToken(ctx context.Context, tkn common.Address) (bool, error)
}

// TypeRecorder persists the classification of a token. Failures are logged only.
type TypeRecorder interface {
	RecordTokenType(ctx context.Context, address string, t token.Type) error
}

type settings struct {
	logger           *zap.Logger
	cache            TypeCache
	recorder         TypeRecorder
	cacheFallback    bool
	batchConcurrency int
}

// Option configures the classifier.
type Option func(*settings)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithCache injects the type cache. Defaults to a fresh MemoryCache.
func WithCache(c TypeCache) Option {
	return func(s *settings) { s.cache = c }
}

// WithRecorder persists each classification result.
func WithRecorder(r TypeRecorder) Option {
	return func(s *settings) { s.recorder = r }
}

// WithCacheFallback controls whether Standard results reached through a
// failed probe are cached. Enabled by default.
func WithCacheFallback(enabled bool) Option {
	return func(s *settings) { s.cacheFallback = enabled }
}

// WithBatchConcurrency bounds the number of concurrent probes in ClassifyBatch.
func WithBatchConcurrency(n int) Option {
	return func(s *settings) { s.batchConcurrency = n }
}

// Classifier classifies tokens and caches the results.
type Classifier struct {
	prober           Prober
	cache            TypeCache
	recorder         TypeRecorder
	cacheFallback    bool
	batchConcurrency int
	logger           *zap.Logger
}

// New creates a classifier over prober.
func New(prober Prober, opts ...Option) *Classifier {
	s := settings{
		logger:           zap.NewNop(),
		cacheFallback:    true,
		batchConcurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.cache == nil {
		s.cache = NewMemoryCache()
	}
	if s.batchConcurrency <= 0 {
		s.batchConcurrency = defaultBatchConcurrency
	}
	return &Classifier{
		prober:           prober,
		cache:            s.cache,
		recorder:         s.recorder,
		cacheFallback:    s.cacheFallback,
		batchConcurrency: s.batchConcurrency,
		logger:           s.logger,
	}
}

// Classify returns the type of the token at address. A malformed address or a
// cancelled ctx is an error; any other probe failure degrades to Standard.
func (c *Classifier) Classify(ctx context.Context, address string) (token.Type, error) {
	addr, err := ethereum.ParseAddress(address)
	if err != nil {
		return "", err
	}
	key := ethereum.NormalizeKey(addr)

	if t, ok := c.cache.Get(key); ok {
		metrics.ClassificationsTotal.WithLabelValues(string(t), "cache").Inc()
		return t, nil
	}

	confidential, probeErr := c.prober.IsConfidentialToken(ctx, addr)
	t := token.Standard
	switch {
	case probeErr != nil && ctx.Err() != nil:
		return "", fmt.Errorf("classify %s: %w", key, ctx.Err())
	case probeErr != nil && (errors.Is(probeErr, context.Canceled) || errors.Is(probeErr, context.DeadlineExceeded)):
		return "", fmt.Errorf("classify %s: %w", key, probeErr)
	case probeErr != nil:
		c.logger.Debug("Confidential marker probe failed, treating token as standard",
			zap.String("token", key),
			zap.Error(errors.Join(ErrClassificationAmbiguous, probeErr)))
		metrics.ClassificationsTotal.WithLabelValues(string(t), "fallback").Inc()
		if !c.cacheFallback {
			return t, nil
		}
	case confidential:
		t = token.Confidential
		metrics.ClassificationsTotal.WithLabelValues(string(t), "probe").Inc()
	default:
		metrics.ClassificationsTotal.WithLabelValues(string(t), "probe").Inc()
	}

	c.cache.Set(key, t)
	c.record(ctx, key, t)
	return t, nil
}

// ClassifyBatch classifies addresses concurrently. Malformed addresses and
// probes cut short by ctx are omitted from the result and reported in the
// returned error map.
func (c *Classifier) ClassifyBatch(ctx context.Context, addresses []string) (map[string]token.Type, map[string]error) {
	types := make([]token.Type, len(addresses))
	errs := make([]error, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchConcurrency)
	for i, address := range addresses {
		g.Go(func() error {
			types[i], errs[i] = c.Classify(gctx, address)
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string]token.Type, len(addresses))
	var failed map[string]error
	for i, address := range addresses {
		key := ethereum.NormalizeAddress(address)
		if errs[i] != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[key] = errs[i]
			continue
		}
		result[key] = types[i]
	}
	return result, failed
}

// Invalidate drops the cached type of address so the next Classify re-probes.
func (c *Classifier) Invalidate(address string) {
	c.cache.Delete(ethereum.NormalizeAddress(address))
}

// Reset drops every cached type.
func (c *Classifier) Reset() {
	c.cache.Clear()
}

func (c *Classifier) record(ctx context.Context, key string, t token.Type) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordTokenType(ctx, key, t); err != nil {
		c.logger.Warn("Failed to record token type",
			zap.String("token", key),
			zap.String("type", string(t)),
			zap.Error(err))
	}
}
