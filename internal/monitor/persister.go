package monitor

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

// persist writes one block and all of its associated rows in a single
// transaction on its own pooled session. blockRowExists skips the block
// insert when the reconciler found the hash already stored.
//
// Receipts are fetched concurrently with a join barrier before any
// per-transaction write; the writes themselves run serially on the one
// transaction. A transaction whose receipt is not yet available is skipped
// and healed by a later review pass.
func (m *Monitor) persist(ctx context.Context, b *domain.Block, blockRowExists, review bool) (outcome, error) {
	chain := m.cfg.BlockchainID

	receipts, err := m.fetchReceipts(ctx, b)
	if err != nil {
		m.log.Error("receipt fetch failed", "block", b.Number, "error", err)
		m.pause(ctx, rollbackPause)
		return outcomeNone, fmt.Errorf("persist block %d: %w", b.Number, err)
	}

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return outcomeNone, fmt.Errorf("persist block %d: %w", b.Number, err)
	}
	defer uow.Rollback(ctx)

	fail := func(err error) (outcome, error) {
		_ = uow.Rollback(ctx)
		m.log.Error("persist failed, rolled back", "block", b.Number, "error", err)
		m.pause(ctx, rollbackPause)
		return outcomeNone, fmt.Errorf("persist block %d: %w", b.Number, err)
	}

	if !blockRowExists {
		if err := uow.InsertBlock(ctx, chain, b); err != nil {
			// Zero rows on the block insert means the schema disagrees
			// with the reconciler's view; not safe to continue past.
			return fail(fmt.Errorf("insert block: %w", err))
		}
	}

	if err := uow.DeleteLogsAtHeight(ctx, chain, b.Number); err != nil {
		return fail(err)
	}
	if err := uow.DeleteTransactionsAtHeight(ctx, chain, b.Number); err != nil {
		return fail(err)
	}

	for _, uncle := range b.Uncles {
		if err := uow.InsertOmmer(ctx, chain, uncle, b.Hash); err != nil {
			return fail(err)
		}
	}

	missing := 0
	for i, tx := range b.Transactions {
		receipt := receipts[i]
		if receipt == nil {
			// Node has no receipt yet; the review scheduler will come back.
			m.log.Debug("receipt not yet available, skipping transaction", "block", b.Number, "tx", tx.Hash)
			metrics.MissingReceipts.WithLabelValues(chain).Inc()
			missing++
			continue
		}

		if err := uow.InsertTransaction(ctx, b.Hash, tx, receipt); err != nil {
			return fail(fmt.Errorf("insert transaction %s: %w", tx.Hash, err))
		}
		metrics.TransactionsPersisted.WithLabelValues(chain).Inc()

		if len(receipt.Logs) == 0 {
			continue
		}

		// Covers transactions reinserted after a stale-height rewrite.
		if err := uow.DeleteLogsByTransactionHash(ctx, tx.Hash); err != nil {
			return fail(err)
		}

		for _, lg := range receipt.Logs {
			logID, err := uow.InsertLog(ctx, lg)
			if errors.Is(err, storage.ErrNoRowsAffected) {
				m.log.Warn("log insert affected no rows, skipping",
					"block", b.Number, "tx", tx.Hash, "log_index", lg.LogIndex)
				continue
			}
			if err != nil {
				return fail(fmt.Errorf("insert log for %s: %w", tx.Hash, err))
			}
			metrics.LogsPersisted.WithLabelValues(chain).Inc()

			if m.decoder != nil {
				if err := m.decoder.DecodeLog(ctx, uow, logID, lg); err != nil {
					return fail(fmt.Errorf("decode log %d: %w", logID, err))
				}
			}
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return fail(err)
	}

	metrics.BlocksPersisted.WithLabelValues(chain).Inc()
	m.log.Info("block persisted",
		"block", b.Number, "hash", b.Hash,
		"txs", len(b.Transactions)-missing, "uncles", len(b.Uncles), "review", review)

	if missing > 0 && m.heal != nil {
		if err := m.heal.Enqueue(ctx, b.Number, "missing receipts"); err != nil {
			m.log.Warn("failed to enqueue heal entry", "block", b.Number, "error", err)
		}
	}

	if review && !blockRowExists {
		return outcomeFoundDuringReview, nil
	}
	return outcomeAdvance, nil
}

// fetchReceipts resolves every transaction's receipt concurrently, bounded
// so one giant block cannot stampede the node. receipts[i] is nil when the
// node has not produced one for b.Transactions[i] yet.
func (m *Monitor) fetchReceipts(ctx context.Context, b *domain.Block) ([]*domain.Receipt, error) {
	receipts := make([]*domain.Receipt, len(b.Transactions))
	if len(b.Transactions) == 0 {
		return receipts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.ReceiptConcurrency)

	for i, tx := range b.Transactions {
		i, tx := i, tx
		g.Go(func() error {
			r, err := m.client.TransactionReceipt(gctx, tx.Hash)
			if err != nil {
				return fmt.Errorf("receipt %s: %w", tx.Hash, err)
			}
			receipts[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return receipts, nil
}
