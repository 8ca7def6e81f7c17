// Package session owns the coprocessor session bound to the active account:
// single-flight initialization, the permit cache, and uniform error mapping
// for unseal and encrypt.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/chainsafe/confidential-wallet/internal/metrics"
	"github.com/chainsafe/confidential-wallet/pkg/account"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
)

var (
	ErrSessionNotInitialized = errors.New("session not initialized")
	ErrPermitCreationFailed  = errors.New("failed to create permit")
	ErrUnsealFailed          = errors.New("failed to unseal value")
	ErrEncryptionFailed      = errors.New("failed to encrypt value")
	ErrPermitIssuerMismatch  = errors.New("permit issuer mismatch")
)

type settings struct {
	logger  *zap.Logger
	permits PermitCache
	env     cofhe.Environment
	now     func() time.Time
}

// Option configures the session manager.
type Option func(*settings)

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithPermitCache injects the permit cache. Defaults to a MemoryPermitCache.
func WithPermitCache(c PermitCache) Option {
	return func(s *settings) { s.permits = c }
}

// WithEnvironment selects the coprocessor environment. Defaults to TESTNET.
func WithEnvironment(env cofhe.Environment) Option {
	return func(s *settings) { s.env = env }
}

// WithClock overrides the time source used for permit expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// Manager is the coprocessor session for the active account. At most one
// account is bound at a time and all cached permits belong to it.
type Manager struct {
	svc      cofhe.Service
	accounts account.Provider
	permits  PermitCache
	env      cofhe.Environment
	now      func() time.Time
	logger   *zap.Logger

	group  singleflight.Group
	initMu sync.Mutex

	mu          sync.RWMutex
	bound       common.Address
	initialized bool
	lastErr     error
	// epoch changes whenever the permit cache is cleared, so a permit created
	// for a previous account is never cached after a switch.
	epoch uint64
}

// NewManager creates a session manager over svc for the accounts exposed by provider.
func NewManager(svc cofhe.Service, provider account.Provider, opts ...Option) *Manager {
	s := settings{
		logger: zap.NewNop(),
		env:    cofhe.EnvTestnet,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.permits == nil {
		s.permits = NewMemoryPermitCache()
	}
	return &Manager{
		svc:      svc,
		accounts: provider,
		permits:  s.permits,
		env:      s.env,
		now:      s.now,
		logger:   s.logger,
	}
}

// Initialize binds the session to the active account. It is a no-op when the
// session is already bound to that account, and concurrent callers share one
// in-flight attempt.
func (m *Manager) Initialize(ctx context.Context) error {
	acc, err := m.accounts.Active()
	if err != nil {
		m.setLastErr(account.ErrNoActiveAccount)
		return account.ErrNoActiveAccount
	}
	addr := acc.Address()

	m.mu.RLock()
	done := m.initialized && m.bound == addr
	m.mu.RUnlock()
	if done {
		return nil
	}

	// The shared attempt is detached from any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(ethereum.NormalizeKey(addr), func() (any, error) {
		return nil, m.initialize(shared, acc)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) initialize(ctx context.Context, acc *account.Account) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	addr := acc.Address()
	m.mu.Lock()
	if m.initialized && m.bound == addr {
		m.mu.Unlock()
		return nil
	}
	if m.bound != addr {
		m.clearPermitsLocked()
		m.initialized = false
		if m.bound != (common.Address{}) {
			m.logger.Info("Active account changed, permits cleared",
				zap.String("previous", m.bound.Hex()),
				zap.String("account", addr.Hex()))
		}
		m.bound = addr
	}
	m.mu.Unlock()

	if err := m.svc.InitializeWithSigner(ctx, acc, m.env); err != nil {
		metrics.SessionInitsTotal.WithLabelValues("error").Inc()
		err = fmt.Errorf("failed to initialize session: %w", err)
		m.setLastErr(err)
		m.logger.Error("Session initialization failed", zap.String("account", addr.Hex()), zap.Error(err))
		return err
	}

	m.mu.Lock()
	if m.bound == addr {
		m.initialized = true
		m.lastErr = nil
	}
	m.mu.Unlock()

	metrics.SessionInitsTotal.WithLabelValues("success").Inc()
	m.logger.Info("Session initialized",
		zap.String("account", addr.Hex()),
		zap.String("environment", string(m.env)))
	return nil
}

// ready verifies that the session has been initialized and is bound to the
// active account, re-initializing after an account switch.
func (m *Manager) ready(ctx context.Context) error {
	acc, err := m.accounts.Active()
	if err != nil {
		return account.ErrNoActiveAccount
	}

	m.mu.RLock()
	bound, initialized := m.bound, m.initialized
	m.mu.RUnlock()

	if bound == (common.Address{}) {
		return ErrSessionNotInitialized
	}
	if bound == acc.Address() {
		if !initialized {
			return ErrSessionNotInitialized
		}
		return nil
	}
	return m.Initialize(ctx)
}

// CreatePermit returns the cached permit for issuer or requests a new one.
func (m *Manager) CreatePermit(ctx context.Context, issuer common.Address) (*cofhe.Permit, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}
	key := ethereum.NormalizeKey(issuer)

	if p, ok := m.permits.Get(key); ok {
		if !p.Expired(m.now()) {
			return p, nil
		}
		m.permits.Delete(key)
	}

	m.mu.RLock()
	epoch := m.epoch
	m.mu.RUnlock()

	p, err := m.svc.CreatePermit(ctx, cofhe.PermitOptions{Type: cofhe.PermitTypeSelf, Issuer: issuer})
	if err != nil {
		m.logger.Warn("Permit creation failed", zap.String("issuer", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPermitCreationFailed, err)
	}
	if p == nil {
		return nil, ErrPermitCreationFailed
	}

	m.mu.RLock()
	current := m.epoch
	m.mu.RUnlock()
	if current == epoch {
		m.permits.Set(key, p)
	}
	return p, nil
}

// Unseal decrypts value using the permit identified by permitHash. The permit
// must have been issued for issuer.
func (m *Manager) Unseal(
	ctx context.Context,
	value *big.Int,
	utype cofhe.UType,
	issuer common.Address,
	permitHash string,
) (*big.Int, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}
	if p, ok := m.permits.FindByHash(permitHash); ok && p.Issuer != issuer {
		return nil, fmt.Errorf("%w: permit issued for %s, value issued by %s",
			ErrPermitIssuerMismatch, p.Issuer.Hex(), issuer.Hex())
	}

	out, err := m.svc.Unseal(ctx, value, utype, issuer, permitHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	if out == nil {
		return nil, ErrUnsealFailed
	}
	return out, nil
}

// Encrypt encrypts items, returning exactly one input per item in order.
func (m *Manager) Encrypt(ctx context.Context, items []cofhe.Encryptable) ([]cofhe.EncryptedInput, error) {
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	out, err := m.svc.Encrypt(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if len(out) != len(items) {
		return nil, fmt.Errorf("%w: got %d ciphertexts for %d values", ErrEncryptionFailed, len(out), len(items))
	}
	return out, nil
}

// AccountChanged drops every cached permit. It is meant to be registered on
// the account holder so permits are invalidated as soon as the switch happens.
func (m *Manager) AccountChanged(prev, next common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearPermitsLocked()
	m.logger.Debug("Account switch observed",
		zap.String("previous", prev.Hex()),
		zap.String("account", next.Hex()))
}

func (m *Manager) clearPermitsLocked() {
	m.permits.Clear()
	m.epoch++
}

// Account returns the bound account address; zero when unbound.
func (m *Manager) Account() common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bound
}

// Initialized reports whether the session is bound and ready.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// LastError returns the last initialization error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
