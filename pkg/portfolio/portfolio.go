// Package portfolio values the publicly readable token holdings of the active
// account, caches the result and refreshes it on a schedule.
package portfolio

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chainsafe/confidential-wallet/pkg/ethereum"
)

// Holding is the valuation of a single token.
type Holding struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Balance  string `json:"balance"`
	PriceUSD string `json:"priceUsd"`
	ValueUSD string `json:"valueUsd"`
}

// Snapshot is the portfolio of one account over one set of tokens. The native
// ETH balance is valued next to the tokens and included in TotalUSD.
type Snapshot struct {
	Account        string    `json:"account"`
	NativeBalance  string    `json:"ethBalance"`
	NativePriceUSD string    `json:"ethPrice"`
	NativeValueUSD string    `json:"ethUsdValue"`
	Holdings       []Holding `json:"tokens"`
	TotalUSD       string    `json:"totalUsdValue"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// NativeDecimals is the precision of ETH balances in wei.
const NativeDecimals = 18

// PriceSource resolves the USD price of a token.
type PriceSource interface {
	PriceUSD(address string) decimal.Decimal
}

// StaticPrices is a fixed price table keyed by lowercase token address.
type StaticPrices struct {
	prices   map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewStaticPrices parses a price table. Unlisted tokens are priced at fallback.
func NewStaticPrices(prices map[string]string, fallback string) (*StaticPrices, error) {
	fb := decimal.NewFromInt(1)
	if fallback != "" {
		d, err := decimal.NewFromString(fallback)
		if err != nil {
			return nil, err
		}
		fb = d
	}

	sp := &StaticPrices{prices: make(map[string]decimal.Decimal, len(prices)), fallback: fb}
	for addr, p := range prices {
		d, err := decimal.NewFromString(p)
		if err != nil {
			return nil, err
		}
		sp.prices[ethereum.NormalizeAddress(addr)] = d
	}
	return sp, nil
}

func (s *StaticPrices) PriceUSD(address string) decimal.Decimal {
	if p, ok := s.prices[ethereum.NormalizeAddress(address)]; ok {
		return p
	}
	return s.fallback
}

// cacheKey identifies a snapshot by account and the sorted set of token addresses.
func cacheKey(account string, tokens []string) string {
	sig := "none"
	if len(tokens) > 0 {
		sig = strings.Join(tokens, ",")
	}
	return ethereum.NormalizeAddress(account) + ":" + sig
}
