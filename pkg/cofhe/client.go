package cofhe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsafe/confidential-wallet/pkg/config"
)

const (
	pathNetwork    = "/v1/network"
	pathSealOutput = "/v1/sealoutput"
	pathEncrypt    = "/v1/encrypt"

	maxResponseSize = 1 << 20
)

var (
	ErrNotInitialized  = errors.New("cofhe client not initialized")
	ErrUnknownPermit   = errors.New("unknown permit")
	ErrNetworkNotReady = errors.New("cofhe network not ready")
)

type clientSettings struct {
	logger     *zap.Logger
	httpClient *http.Client
	now        func() time.Time
}

// ClientOption configures the cofhe client.
type ClientOption func(*clientSettings)

// WithLogger sets a custom logger for the client.
func WithLogger(l *zap.Logger) ClientOption {
	return func(s *clientSettings) { s.logger = l }
}

// WithHTTPClient overrides the HTTP client used for network calls.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *clientSettings) { s.httpClient = c }
}

// WithClock overrides the time source used for permit expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(s *clientSettings) { s.now = now }
}

// Client is the production Service talking to the threshold network HTTP API.
type Client struct {
	cfg    *config.CoFHEConfig
	http   *http.Client
	now    func() time.Time
	logger *zap.Logger

	mu      sync.RWMutex
	signer  Signer
	env     Environment
	permits map[string]*Permit
}

var _ Service = (*Client)(nil)

// NewClient creates a new cofhe client.
func NewClient(cfg *config.CoFHEConfig, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("nil cofhe config")
	}
	if cfg.URL == "" {
		return nil, errors.New("cofhe url is required")
	}

	s := clientSettings{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Client{
		cfg:     cfg,
		http:    s.httpClient,
		now:     s.now,
		logger:  s.logger,
		permits: make(map[string]*Permit),
	}, nil
}

type networkResponse struct {
	Environment string `json:"environment"`
	Ready       bool   `json:"ready"`
}

// InitializeWithSigner binds the client to signer after checking the network is ready.
// Permits issued for a previous signer are dropped.
func (c *Client) InitializeWithSigner(ctx context.Context, signer Signer, env Environment) error {
	if signer == nil {
		return errors.New("nil signer")
	}

	var resp networkResponse
	if err := c.do(ctx, http.MethodGet, pathNetwork+"?environment="+string(env), nil, &resp); err != nil {
		return fmt.Errorf("failed to query network: %w", err)
	}
	if !resp.Ready {
		return ErrNetworkNotReady
	}

	c.mu.Lock()
	if c.signer == nil || c.signer.Address() != signer.Address() {
		c.permits = make(map[string]*Permit)
	}
	c.signer = signer
	c.env = env
	c.mu.Unlock()

	c.logger.Info("CoFHE session initialized",
		zap.String("account", signer.Address().Hex()),
		zap.String("environment", string(env)))
	return nil
}

// CreatePermit signs a new permit and keeps its sealing key for later unseals.
func (c *Client) CreatePermit(_ context.Context, opts PermitOptions) (*Permit, error) {
	c.mu.RLock()
	signer := c.signer
	c.mu.RUnlock()
	if signer == nil {
		return nil, ErrNotInitialized
	}

	p, err := NewPermit(signer, opts, c.cfg.PermitTTL, c.now())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.permits[strings.ToLower(p.Hash)] = p
	c.mu.Unlock()

	return p, nil
}

type permitPayload struct {
	Type       string `json:"type"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
	Expiration int64  `json:"expiration"`
	SealingKey string `json:"sealingKey"`
	Signature  string `json:"signature"`
	Hash       string `json:"hash"`
}

type sealOutputRequest struct {
	CtHash string        `json:"ctHash"`
	UType  uint8         `json:"utype"`
	Permit permitPayload `json:"permit"`
}

type sealOutputResponse struct {
	Sealed *SealedOutput `json:"sealed"`
	Error  string        `json:"error"`
}

// Unseal asks the network to re-encrypt value to the permit's sealing key and opens the result.
func (c *Client) Unseal(
	ctx context.Context,
	value *big.Int,
	utype UType,
	issuer common.Address,
	permitHash string,
) (*big.Int, error) {
	if value == nil {
		return nil, errors.New("nil encrypted value")
	}

	c.mu.RLock()
	permit, ok := c.permits[strings.ToLower(permitHash)]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPermit, permitHash)
	}
	if permit.Issuer != issuer {
		return nil, fmt.Errorf("%w: permit issued for %s, not %s", ErrInvalidPermit, permit.Issuer.Hex(), issuer.Hex())
	}
	if err := permit.Verify(c.now()); err != nil {
		return nil, err
	}

	req := sealOutputRequest{
		CtHash: value.String(),
		UType:  uint8(utype),
		Permit: toPermitPayload(permit),
	}
	var resp sealOutputResponse
	if err := c.do(ctx, http.MethodPost, pathSealOutput, req, &resp); err != nil {
		return nil, fmt.Errorf("sealoutput request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("sealoutput rejected: %s", resp.Error)
	}

	plain, err := permit.Open(resp.Sealed)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).SetBytes(plain)
	if !utype.Fits(out) {
		return nil, fmt.Errorf("unsealed value does not fit %s", utype)
	}
	return out, nil
}

type encryptItem struct {
	Value string `json:"value"`
	UType uint8  `json:"utype"`
}

type encryptRequest struct {
	Account      string        `json:"account"`
	Environment  string        `json:"environment"`
	SecurityZone uint8         `json:"securityZone"`
	Items        []encryptItem `json:"items"`
}

type encryptResponse struct {
	Inputs []EncryptedInput `json:"inputs"`
	Error  string           `json:"error"`
}

// Encrypt submits plaintexts for encryption and verification.
func (c *Client) Encrypt(ctx context.Context, items []Encryptable) ([]EncryptedInput, error) {
	c.mu.RLock()
	signer, env := c.signer, c.env
	c.mu.RUnlock()
	if signer == nil {
		return nil, ErrNotInitialized
	}

	req := encryptRequest{
		Account:      signer.Address().Hex(),
		Environment:  string(env),
		SecurityZone: c.cfg.SecurityZone,
		Items:        make([]encryptItem, 0, len(items)),
	}
	for i, item := range items {
		if !item.UType.Fits(item.Value) {
			return nil, fmt.Errorf("item %d does not fit %s", i, item.UType)
		}
		req.Items = append(req.Items, encryptItem{Value: item.Value.String(), UType: uint8(item.UType)})
	}

	var resp encryptResponse
	if err := c.do(ctx, http.MethodPost, pathEncrypt, req, &resp); err != nil {
		return nil, fmt.Errorf("encrypt request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("encrypt rejected: %s", resp.Error)
	}
	return resp.Inputs, nil
}

func toPermitPayload(p *Permit) permitPayload {
	var exp int64
	if !p.Expiration.IsZero() {
		exp = p.Expiration.Unix()
	}
	return permitPayload{
		Type:       p.Type,
		Issuer:     p.Issuer.Hex(),
		Account:    p.Account.Hex(),
		Expiration: exp,
		SealingKey: hexutil.Encode(p.SealingPublicKey[:]),
		Signature:  hexutil.Encode(p.Signature),
		Hash:       p.Hash,
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.URL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("CoFHE request failed",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
