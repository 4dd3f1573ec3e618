// Package monitor implements the single-chain ingestion loop: head
// discovery, in-order block fetch, reconciliation against stored state,
// transactional persistence, and the dual-cadence review scheduler that
// heals missed data behind the head.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/decoder"
	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

// NodeClient is the node surface the monitor consumes.
type NodeClient interface {
	// BlockByNumber returns the block at the height with full transaction
	// objects, or (nil, nil) when the node has nothing there yet.
	BlockByNumber(ctx context.Context, number uint64) (*domain.Block, error)

	// TransactionReceipt returns (nil, nil) while the receipt is pending.
	TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, error)

	// Cycle rotates to an alternative endpoint if observed is still the
	// current failover token; returns the token in effect afterwards.
	Cycle(observed uint64) uint64

	// Version returns the current failover token.
	Version() uint64
}

// HealQueue remembers heights that need an out-of-band revisit. Drain
// only removes entries below the given bound; the rest stay queued.
type HealQueue interface {
	Enqueue(ctx context.Context, number uint64, reason string) error
	Drain(ctx context.Context, max int, below uint64) ([]uint64, error)
}

// Config holds per-monitor settings.
type Config struct {
	BlockchainID string

	// StartBlockOverride replaces the DB-derived resumption height.
	StartBlockOverride *uint64
	// EndBlockOverride terminates the process cleanly once the cursor
	// reaches it, before fetching it.
	EndBlockOverride *uint64

	ReviewBlockLimit              int64
	ComprehensiveReviewBlockLimit int64
	ComprehensiveReviewCountMod   uint64

	// HeadPollInterval is the sleep after a short review pass,
	// ComprehensiveReviewInterval after a long one.
	HeadPollInterval            time.Duration
	ComprehensiveReviewInterval time.Duration

	ReceiptConcurrency int
	ReviewConcurrency  int
	HealDrainLimit     int
}

func (c *Config) withDefaults() {
	if c.ReviewBlockLimit == 0 {
		c.ReviewBlockLimit = 15
	}
	if c.ComprehensiveReviewBlockLimit == 0 {
		c.ComprehensiveReviewBlockLimit = 100
	}
	if c.ComprehensiveReviewCountMod == 0 {
		c.ComprehensiveReviewCountMod = 10
	}
	if c.HeadPollInterval == 0 {
		c.HeadPollInterval = 2500 * time.Millisecond
	}
	if c.ComprehensiveReviewInterval == 0 {
		c.ComprehensiveReviewInterval = 15 * time.Second
	}
	if c.ReceiptConcurrency == 0 {
		c.ReceiptConcurrency = 5
	}
	if c.ReviewConcurrency == 0 {
		c.ReviewConcurrency = 4
	}
	if c.HealDrainLimit == 0 {
		c.HealDrainLimit = 25
	}
}

// Pauses applied before the process gives up, so a supervisor restart does
// not turn into a tight crash loop.
const (
	fatalPause    = 2500 * time.Millisecond
	rollbackPause = 1000 * time.Millisecond
)

// Monitor owns the next-block cursor for one chain.
type Monitor struct {
	cfg     Config
	client  NodeClient
	store   storage.Store
	decoder decoder.Decoder
	heal    HealQueue
	log     *slog.Logger

	cursor        atomic.Uint64
	reviewCounter atomic.Uint64
}

// New creates a monitor. decoder and heal may be nil.
func New(cfg Config, client NodeClient, store storage.Store, dec decoder.Decoder, heal HealQueue) *Monitor {
	cfg.withDefaults()
	return &Monitor{
		cfg:     cfg,
		client:  client,
		store:   store,
		decoder: dec,
		heal:    heal,
		log:     slog.Default().With("component", "monitor", "chain", cfg.BlockchainID),
	}
}

// Status is a point-in-time view for the health server.
type Status struct {
	BlockchainID  string `json:"blockchain_id"`
	Cursor        uint64 `json:"cursor"`
	ReviewCounter uint64 `json:"review_counter"`
}

// Status returns the monitor's current position.
func (m *Monitor) Status() Status {
	return Status{
		BlockchainID:  m.cfg.BlockchainID,
		Cursor:        m.cursor.Load(),
		ReviewCounter: m.reviewCounter.Load(),
	}
}

// Run drives the cursor loop until the end override is reached (nil), the
// context is cancelled (nil), or a non-transient failure occurs (error;
// the caller exits non-zero and a supervisor restarts the process).
func (m *Monitor) Run(ctx context.Context) error {
	start, err := m.resolveStartBlock(ctx)
	if err != nil {
		return err
	}

	// The previous run may have crashed mid-persist at this height.
	if err := m.flushHeight(ctx, start); err != nil {
		return err
	}

	m.cursor.Store(start)
	m.log.Info("monitor started", "start_block", start)

	for {
		if ctx.Err() != nil {
			m.log.Info("monitor stopped")
			return nil
		}

		cursor := m.cursor.Load()
		metrics.CursorHeight.WithLabelValues(m.cfg.BlockchainID).Set(float64(cursor))

		if m.cfg.EndBlockOverride != nil && cursor >= *m.cfg.EndBlockOverride {
			m.log.Info("end block reached", "cursor", cursor, "end_block", *m.cfg.EndBlockOverride)
			return nil
		}

		out, err := m.processHeight(ctx, int64(cursor), false)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch out {
		case outcomeRetry:
			// Same height, fresh fetch after a node cycle.
		case outcomeAdvance, outcomeAlreadyExists:
			m.cursor.Store(cursor + 1)
		case outcomeAtHead:
			if err := m.review(ctx, cursor); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// resolveStartBlock picks the override when set, otherwise resumes at the
// highest stored height. An empty database starts at genesis.
func (m *Monitor) resolveStartBlock(ctx context.Context) (uint64, error) {
	if m.cfg.StartBlockOverride != nil {
		return *m.cfg.StartBlockOverride, nil
	}

	latest, ok, err := m.store.LatestNumber(ctx, m.cfg.BlockchainID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve start block: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return latest, nil
}

// flushHeight deletes everything stored at the resumption height so
// re-fetching it restores atomicity across restarts.
func (m *Monitor) flushHeight(ctx context.Context, number uint64) error {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	defer uow.Rollback(ctx)

	chain := m.cfg.BlockchainID
	if err := uow.DeleteLogsAtHeight(ctx, chain, number); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := uow.DeleteTransactionsAtHeight(ctx, chain, number); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := uow.DeleteOmmersAtHeight(ctx, chain, number); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := uow.DeleteBlocksAtHeight(ctx, chain, number); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	m.log.Info("flushed resumption height", "block", number)
	return nil
}

// pause sleeps without outliving the context.
func (m *Monitor) pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
