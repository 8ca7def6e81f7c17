package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClassificationsTotal counts token classifications by resulting type and source
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_token_classifications_total",
			Help: "Total number of token classifications",
		},
		[]string{"type", "source"},
	)

	// BalanceFetchesTotal counts confidential balance fetches by outcome
	BalanceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_balance_fetches_total",
			Help: "Total number of confidential balance fetches",
		},
		[]string{"status"},
	)

	// UnsealDuration tracks how long unsealing takes
	UnsealDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_unseal_duration_seconds",
			Help:    "Unseal duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"},
	)

	// TransfersTotal counts transfers by kind and status
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Total number of transfers",
		},
		[]string{"kind", "status"},
	)

	// TransferDuration tracks transfer time from submission request to receipt
	TransferDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_transfer_duration_seconds",
			Help:    "Transfer duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// HistoryDecryptionsTotal counts history value decryptions by source
	HistoryDecryptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_history_decryptions_total",
			Help: "Total number of history value decryptions",
		},
		[]string{"source"},
	)

	// PortfolioRefreshesTotal counts portfolio refreshes by status
	PortfolioRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_portfolio_refreshes_total",
			Help: "Total number of portfolio refreshes",
		},
		[]string{"status"},
	)

	// SessionInitsTotal counts coprocessor session initializations by status
	SessionInitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_session_inits_total",
			Help: "Total number of coprocessor session initializations",
		},
		[]string{"status"},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
