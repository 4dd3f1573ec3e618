package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksPersisted tracks blocks written per chain
	BlocksPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_blocks_persisted_total",
			Help: "Total number of blocks persisted",
		},
		[]string{"chain"},
	)

	// TransactionsPersisted tracks transactions written per chain
	TransactionsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_transactions_persisted_total",
			Help: "Total number of transactions persisted",
		},
		[]string{"chain"},
	)

	// LogsPersisted tracks logs written per chain
	LogsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_logs_persisted_total",
			Help: "Total number of event logs persisted",
		},
		[]string{"chain"},
	)

	// CursorHeight tracks the monitor's next-block cursor
	CursorHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evm_cache_cursor_height",
			Help: "Next block height the monitor intends to fetch",
		},
		[]string{"chain"},
	)

	// ChainHeadHeight tracks the node's reported head height
	ChainHeadHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evm_cache_chain_head_height",
			Help: "Latest block height reported by the node",
		},
		[]string{"chain"},
	)

	// ReviewPasses tracks review sweeps by window kind
	ReviewPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_review_passes_total",
			Help: "Total number of review sweeps executed",
		},
		[]string{"chain", "kind"},
	)

	// BlocksFoundDuringReview tracks blocks first seen by a review sweep
	BlocksFoundDuringReview = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_blocks_found_during_review_total",
			Help: "Blocks inserted by review sweeps rather than the head loop",
		},
		[]string{"chain"},
	)

	// StaleHeightRewrites tracks reorg/stale-transaction rewrites
	StaleHeightRewrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_stale_height_rewrites_total",
			Help: "Heights whose associated rows were cleared and rewritten",
		},
		[]string{"chain"},
	)

	// MissingReceipts tracks transactions skipped for lack of a receipt
	MissingReceipts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_cache_missing_receipts_total",
			Help: "Transactions skipped because the node had no receipt yet",
		},
		[]string{"chain"},
	)

	// NodeCycles counts endpoint failovers
	NodeCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evm_cache_node_cycles_total",
			Help: "Total number of node endpoint failovers",
		},
	)

	// HealQueueDepth tracks heights waiting on the heal queue
	HealQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evm_cache_heal_queue_depth",
			Help: "Heights queued for out-of-band healing",
		},
		[]string{"chain"},
	)
)
