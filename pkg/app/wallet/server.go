// Package wallet implements app.Runner for the wallet core process.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/confidential-wallet/pkg/account"
	apphttp "github.com/chainsafe/confidential-wallet/pkg/app/http"
	"github.com/chainsafe/confidential-wallet/pkg/balance"
	"github.com/chainsafe/confidential-wallet/pkg/cofhe"
	"github.com/chainsafe/confidential-wallet/pkg/config"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/history"
	"github.com/chainsafe/confidential-wallet/pkg/pgutil"
	"github.com/chainsafe/confidential-wallet/pkg/portfolio"
	"github.com/chainsafe/confidential-wallet/pkg/session"
	"github.com/chainsafe/confidential-wallet/pkg/token/classifier"
	"github.com/chainsafe/confidential-wallet/pkg/tokenstore"
	"github.com/chainsafe/confidential-wallet/pkg/transfer"
	"github.com/chainsafe/confidential-wallet/pkg/wallet/api"
)

const (
	historyMemoSize = 1024

	defaultHTTPReadTimeout  = 15 * time.Second
	defaultHTTPWriteTimeout = 5 * time.Minute
	defaultHTTPIdleTimeout  = 60 * time.Second
)

// Server holds configuration for the wallet core process.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new wallet Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires the wallet components and serves the API until an OS shutdown
// signal is received or a server fails.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting wallet core",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int64("chain_id", cfg.Ethereum.ChainID))

	ethClient, err := ethereum.NewClient(&cfg.Ethereum, ethereum.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialize ethereum client: %w", err)
	}
	defer ethClient.Close()
	contract := ethereum.NewFHERC20(ethClient)

	keyring, err := s.loadKeyring(logger)
	if err != nil {
		return err
	}

	cofheClient, err := cofhe.NewClient(&cfg.CoFHE, cofhe.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialize cofhe client: %w", err)
	}
	manager := session.NewManager(cofheClient, keyring,
		session.WithLogger(logger),
		session.WithEnvironment(cofhe.Environment(cfg.CoFHE.Environment)))
	keyring.OnChange(manager.AccountChanged)

	store, closeStore, err := s.openTokenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cls := classifier.New(contract,
		classifier.WithLogger(logger),
		classifier.WithRecorder(store))
	reader := balance.NewReader(contract)
	fetcher := balance.NewFetcher(reader, manager, logger)
	orchestrator := transfer.NewOrchestrator(keyring, manager, contract, cls, logger)

	decryptor, err := history.NewDecryptor(manager, keyring, historyMemoSize, logger)
	if err != nil {
		return fmt.Errorf("initialize history decryptor: %w", err)
	}

	tracker, closeCache, err := s.newTracker(ctx, keyring, store, contract, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	s.warmUp(ctx, keyring, manager, logger)

	if cfg.Portfolio.RefreshInterval > 0 {
		refresh := tracker.Schedule(ctx, cfg.Portfolio.RefreshInterval, cfg.Portfolio.RefreshTimeout)
		defer refresh.Stop()
	}

	router := api.NewRouter(api.Deps{
		Accounts:   keyring,
		Wallets:    keyring,
		Classifier: cls,
		Balances:   fetcher,
		Transfers:  orchestrator,
		History:    decryptor,
		Portfolio:  tracker,
		Tokens:     store,
		Metadata:   reader,
	}, cfg.Server.RequestTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv := newHTTPServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), router)
		return apphttp.ServeAndWait(gctx, logger, srv, cfg.Shutdown.Timeout)
	})
	if cfg.Monitoring.Enabled {
		g.Go(func() error {
			srv := newHTTPServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Monitoring.MetricsPort), metricsRouter())
			return apphttp.ServeAndWait(gctx, logger, srv, cfg.Shutdown.Timeout)
		})
		logger.Info("Metrics enabled", zap.Int("port", cfg.Monitoring.MetricsPort))
	}

	return g.Wait()
}

// loadKeyring loads the configured accounts. The core starts disconnected
// when no key is set.
func (s *Server) loadKeyring(logger *zap.Logger) (*account.Keyring, error) {
	keyring, err := account.LoadKeyring(&s.cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	acc, err := keyring.Active()
	if errors.Is(err, account.ErrNoActiveAccount) {
		logger.Warn("No account key configured; starting disconnected",
			zap.String("env", s.cfg.Account.PrivateKeyEnv))
		return keyring, nil
	}
	logger.Info("Accounts loaded",
		zap.Int("wallets", len(keyring.Wallets())),
		zap.String("active", acc.Address().Hex()))
	return keyring, nil
}

func (s *Server) openTokenStore(ctx context.Context, logger *zap.Logger) (tokenstore.Store, func(), error) {
	if !s.cfg.Database.Enabled() {
		logger.Info("No database configured; custom tokens are kept in memory")
		return tokenstore.NewMemoryStore(), func() {}, nil
	}

	db, err := pgutil.ConnectDB(ctx, &s.cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return tokenstore.NewStore(db), closeDB(db, logger), nil
}

func closeDB(db *bun.DB, logger *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}

func (s *Server) newTracker(
	ctx context.Context,
	accounts account.Provider,
	store tokenstore.Store,
	contract *ethereum.FHERC20,
	logger *zap.Logger,
) (*portfolio.Tracker, func(), error) {
	cfg := s.cfg

	prices, err := portfolio.NewStaticPrices(cfg.Portfolio.Prices, cfg.Portfolio.FallbackPrice)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid portfolio prices: %w", err)
	}
	nativePrice, err := decimal.NewFromString(cfg.Portfolio.NativePrice)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid native price: %w", err)
	}

	var (
		cache   portfolio.Cache
		closeFn = func() {}
	)
	if cfg.Redis.Addr != "" {
		client := portfolio.NewRedisClient(&cfg.Redis)
		rc := portfolio.NewRedisCache(client, cfg.Redis.Namespace, cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("Portfolio cache backed by redis", zap.String("addr", cfg.Redis.Addr))
		cache = rc
		closeFn = func() { _ = client.Close() }
	} else {
		cache = portfolio.NewMemoryCache(cfg.Redis.TTL)
	}

	tracker := portfolio.NewTracker(accounts, store, contract,
		portfolio.WithLogger(logger),
		portfolio.WithNativeBalance(contract, nativePrice),
		portfolio.WithCache(cache),
		portfolio.WithPrices(prices),
		portfolio.WithStaleAfter(cfg.Portfolio.StaleAfter))
	return tracker, closeFn, nil
}

// warmUp initializes the coprocessor session in the background so the first
// balance request does not pay for it.
func (s *Server) warmUp(ctx context.Context, accounts account.Provider, manager *session.Manager, logger *zap.Logger) {
	if _, err := accounts.Active(); err != nil {
		return
	}
	go func() {
		initCtx, cancel := context.WithTimeout(ctx, s.cfg.CoFHE.RequestTimeout)
		defer cancel()
		if err := manager.Initialize(initCtx); err != nil {
			logger.Warn("Session warm-up failed (will retry on demand)", zap.Error(err))
		}
	}()
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  defaultHTTPReadTimeout,
		WriteTimeout: defaultHTTPWriteTimeout,
		IdleTimeout:  defaultHTTPIdleTimeout,
	}
}
