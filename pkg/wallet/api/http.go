// Package api exposes the wallet core to UI consumers over HTTP.
package api

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chainsafe/confidential-wallet/pkg/account"
	apperrors "github.com/chainsafe/confidential-wallet/pkg/app/errors"
	apphttp "github.com/chainsafe/confidential-wallet/pkg/app/http"
	"github.com/chainsafe/confidential-wallet/pkg/balance"
	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
	"github.com/chainsafe/confidential-wallet/pkg/history"
	"github.com/chainsafe/confidential-wallet/pkg/portfolio"
	"github.com/chainsafe/confidential-wallet/pkg/token"
	"github.com/chainsafe/confidential-wallet/pkg/tokenstore"
	"github.com/chainsafe/confidential-wallet/pkg/transfer"
)

// Wallets lists the loaded accounts and switches the active one.
type Wallets interface {
	Wallets() []account.Wallet
	Switch(address string) (account.Wallet, error)
	Disconnect()
}

// Classifier resolves token types.
type Classifier interface {
	Classify(ctx context.Context, address string) (token.Type, error)
	ClassifyBatch(ctx context.Context, addresses []string) (map[string]token.Type, map[string]error)
}

// Balances runs and reports balance decryption.
type Balances interface {
	Fetch(ctx context.Context, tokenAddr, accountAddr string) balance.Result
	Refetch(ctx context.Context, tokenAddr, accountAddr string) balance.Result
	State(tokenAddr, accountAddr string) balance.Result
}

// Transfers submits transfers and approvals.
type Transfers interface {
	Transfer(ctx context.Context, req transfer.Request) (common.Hash, error)
	Approve(ctx context.Context, req transfer.Request) (common.Hash, error)
	Send(ctx context.Context, req transfer.Request) (common.Hash, error)
	State() transfer.State
	Reset()
}

// History decrypts transaction values.
type History interface {
	Redecrypt(ctx context.Context, handle *big.Int, decimals uint8, issuer string) (string, error)
	DecryptItems(ctx context.Context, items []history.Item) []history.ItemResult
}

// Portfolio values the active account's holdings.
type Portfolio interface {
	Value(ctx context.Context, force bool) (*portfolio.Snapshot, error)
}

// MetadataReader reads ERC-20 metadata from chain.
type MetadataReader interface {
	ReadMetadata(ctx context.Context, tokenAddr string) (*token.Metadata, error)
}

// Deps are the components served by the API.
type Deps struct {
	Accounts   account.Provider
	Wallets    Wallets
	Classifier Classifier
	Balances   Balances
	Transfers  Transfers
	History    History
	Portfolio  Portfolio
	Tokens     tokenstore.Store
	Metadata   MetadataReader
}

// HTTP serves the wallet endpoints
type HTTP struct {
	deps   Deps
	logger *zap.Logger
}

// NewRouter builds the chi router with the wallet endpoints mounted
func NewRouter(deps Deps, requestTimeout time.Duration, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	RegisterRoutes(r, deps, logger)
	return r
}

// RegisterRoutes registers the wallet endpoints on the given chi router
func RegisterRoutes(r chi.Router, deps Deps, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTP{deps: deps, logger: logger}

	r.Get("/account", apphttp.HandleError(h.activeAccount))
	if deps.Wallets != nil {
		r.Get("/accounts", apphttp.HandleError(h.listWallets))
		r.Put("/account", apphttp.HandleError(h.switchAccount))
		r.Delete("/account", apphttp.HandleError(h.disconnect))
	}

	r.Route("/tokens", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.listTokens))
		r.Post("/", apphttp.HandleError(h.addToken))
		r.Post("/classify", apphttp.HandleError(h.classifyBatch))
		r.Get("/{address}/type", apphttp.HandleError(h.classify))
		r.Delete("/{address}", apphttp.HandleError(h.removeToken))
	})

	r.Route("/balances/{token}", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.fetchBalance))
		r.Get("/state", apphttp.HandleError(h.balanceState))
	})

	r.Route("/transfers", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.send))
		r.Post("/confidential", apphttp.HandleError(h.confidentialTransfer))
		r.Post("/approve", apphttp.HandleError(h.approve))
		r.Get("/state", apphttp.HandleError(h.transferState))
		r.Post("/reset", apphttp.HandleError(h.resetTransfer))
	})

	r.Post("/history/decrypt", apphttp.HandleError(h.decryptHistory))
	r.Post("/history/redecrypt", apphttp.HandleError(h.redecryptHistory))

	r.Get("/portfolio", apphttp.HandleError(h.portfolio))
}

func (h *HTTP) activeAccount(w http.ResponseWriter, _ *http.Request) error {
	acc, err := h.deps.Accounts.Active()
	if err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"address": acc.Address().Hex()})
	return nil
}

func (h *HTTP) listWallets(w http.ResponseWriter, _ *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, map[string][]account.Wallet{"wallets": h.deps.Wallets.Wallets()})
	return nil
}

type switchAccountRequest struct {
	Address string `json:"address"`
}

func (h *HTTP) switchAccount(w http.ResponseWriter, r *http.Request) error {
	var req switchAccountRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		return err
	}
	wallet, err := h.deps.Wallets.Switch(req.Address)
	if err != nil {
		return mapError(err)
	}
	h.logger.Info("Active account switched", zap.String("address", wallet.Address.Hex()))
	apphttp.WriteJSON(w, http.StatusOK, wallet)
	return nil
}

func (h *HTTP) disconnect(w http.ResponseWriter, _ *http.Request) error {
	h.deps.Wallets.Disconnect()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type classifyBatchRequest struct {
	Addresses []string `json:"addresses"`
}

type classifyBatchResponse struct {
	Types  map[string]token.Type `json:"types"`
	Errors map[string]string     `json:"errors,omitempty"`
}

func (h *HTTP) classify(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	t, err := h.deps.Classifier.Classify(r.Context(), address)
	if err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]any{"address": address, "tokenType": t})
	return nil
}

func (h *HTTP) classifyBatch(w http.ResponseWriter, r *http.Request) error {
	var req classifyBatchRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		return err
	}
	if len(req.Addresses) == 0 {
		return apperrors.BadRequestError(nil, "addresses required")
	}

	types, errs := h.deps.Classifier.ClassifyBatch(r.Context(), req.Addresses)
	resp := classifyBatchResponse{Types: types}
	if len(errs) > 0 {
		resp.Errors = make(map[string]string, len(errs))
		for addr, err := range errs {
			resp.Errors[addr] = err.Error()
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) listTokens(w http.ResponseWriter, r *http.Request) error {
	tokens, err := h.deps.Tokens.ListTokens(r.Context())
	if err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, tokens)
	return nil
}

type addTokenRequest struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals *uint8 `json:"decimals"`
}

// addToken stores a custom token. Missing metadata is read from chain and the
// token is classified before it is stored.
func (h *HTTP) addToken(w http.ResponseWriter, r *http.Request) error {
	var req addTokenRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		return err
	}
	if !ethereum.ValidateAddress(req.Address) {
		return apperrors.BadRequestError(ethereum.ErrInvalidAddress, "invalid token address")
	}
	ctx := r.Context()

	tkn := &tokenstore.CustomToken{Address: req.Address, Name: req.Name, Symbol: req.Symbol}
	if req.Decimals != nil {
		tkn.Decimals = *req.Decimals
	}
	if req.Name == "" || req.Symbol == "" || req.Decimals == nil {
		meta, err := h.deps.Metadata.ReadMetadata(ctx, req.Address)
		if err != nil {
			return apperrors.DependencyFailureError(err, "failed to read token metadata")
		}
		tkn.Name, tkn.Symbol, tkn.Decimals = meta.Name, meta.Symbol, meta.Decimals
	}

	t, err := h.deps.Classifier.Classify(ctx, req.Address)
	if err != nil {
		h.logger.Warn("Storing token without classification",
			zap.String("token", req.Address), zap.Error(err))
	} else {
		tkn.Type = t
	}

	if err := h.deps.Tokens.AddToken(ctx, tkn); err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusCreated, tkn)
	return nil
}

func (h *HTTP) removeToken(w http.ResponseWriter, r *http.Request) error {
	if err := h.deps.Tokens.RemoveToken(r.Context(), chi.URLParam(r, "address")); err != nil {
		return mapError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// accountParam returns the ?account= query value or the active account.
func (h *HTTP) accountParam(r *http.Request) (string, error) {
	if a := r.URL.Query().Get("account"); a != "" {
		return a, nil
	}
	acc, err := h.deps.Accounts.Active()
	if err != nil {
		return "", mapError(err)
	}
	return acc.Address().Hex(), nil
}

func (h *HTTP) fetchBalance(w http.ResponseWriter, r *http.Request) error {
	acc, err := h.accountParam(r)
	if err != nil {
		return err
	}
	tkn := chi.URLParam(r, "token")

	var res balance.Result
	if refetch, _ := strconv.ParseBool(r.URL.Query().Get("refetch")); refetch {
		res = h.deps.Balances.Refetch(r.Context(), tkn, acc)
	} else {
		res = h.deps.Balances.Fetch(r.Context(), tkn, acc)
	}
	apphttp.WriteJSON(w, http.StatusOK, res)
	return nil
}

func (h *HTTP) balanceState(w http.ResponseWriter, r *http.Request) error {
	acc, err := h.accountParam(r)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, h.deps.Balances.State(chi.URLParam(r, "token"), acc))
	return nil
}

type transferResponse struct {
	Hash  common.Hash    `json:"hash"`
	State transfer.State `json:"state"`
}

type submitFunc func(ctx context.Context, req transfer.Request) (common.Hash, error)

func (h *HTTP) submit(w http.ResponseWriter, r *http.Request, fn submitFunc) error {
	var req transfer.Request
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		return err
	}
	hash, err := fn(r.Context(), req)
	if err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, transferResponse{Hash: hash, State: h.deps.Transfers.State()})
	return nil
}

func (h *HTTP) send(w http.ResponseWriter, r *http.Request) error {
	return h.submit(w, r, h.deps.Transfers.Send)
}

func (h *HTTP) confidentialTransfer(w http.ResponseWriter, r *http.Request) error {
	return h.submit(w, r, h.deps.Transfers.Transfer)
}

func (h *HTTP) approve(w http.ResponseWriter, r *http.Request) error {
	return h.submit(w, r, h.deps.Transfers.Approve)
}

func (h *HTTP) transferState(w http.ResponseWriter, _ *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, h.deps.Transfers.State())
	return nil
}

func (h *HTTP) resetTransfer(w http.ResponseWriter, _ *http.Request) error {
	h.deps.Transfers.Reset()
	apphttp.WriteJSON(w, http.StatusOK, h.deps.Transfers.State())
	return nil
}

type decryptHistoryRequest struct {
	Items []history.Item `json:"items"`
}

func (h *HTTP) decryptHistory(w http.ResponseWriter, r *http.Request) error {
	var req decryptHistoryRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"results": h.deps.History.DecryptItems(r.Context(), req.Items),
	})
	return nil
}

func (h *HTTP) redecryptHistory(w http.ResponseWriter, r *http.Request) error {
	var item history.Item
	if err := apphttp.DecodeJSON(r, &item); err != nil {
		return err
	}
	v, err := h.deps.History.Redecrypt(r.Context(), item.Handle, item.Decimals, item.Token)
	if err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, history.ItemResult{ID: item.ID, Value: v})
	return nil
}

func (h *HTTP) portfolio(w http.ResponseWriter, r *http.Request) error {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	snap, err := h.deps.Portfolio.Value(r.Context(), force)
	if err != nil {
		return mapError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, snap)
	return nil
}
