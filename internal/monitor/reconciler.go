package monitor

import (
	"context"
	"fmt"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
)

// reconcile compares a fetched block against stored rows by hash and by
// height, and decides between ignoring it, rewriting its associated data,
// and inserting it as new.
//
// A hash already present is authoritative for its transaction set; a
// height whose summed transaction count disagrees indicates uncling and is
// resolved by trusting the current fetch.
func (m *Monitor) reconcile(ctx context.Context, b *domain.Block, review bool) (outcome, error) {
	chain := m.cfg.BlockchainID

	stored, err := m.store.GetByHash(ctx, chain, b.Hash)
	if err != nil {
		return outcomeNone, fmt.Errorf("reconcile block %d: %w", b.Number, err)
	}

	if stored == nil {
		if review {
			m.log.Info("block found during review", "block", b.Number, "hash", b.Hash)
			metrics.BlocksFoundDuringReview.WithLabelValues(chain).Inc()
		}
		return m.persist(ctx, b, false, review)
	}

	if stored.TransactionCount != len(b.Transactions) {
		// Same hash, different transaction set: the block was re-included
		// after a reorg with replaced transactions.
		m.log.Info("transaction count changed for stored hash, rewriting",
			"block", b.Number, "hash", b.Hash,
			"stored", stored.TransactionCount, "fetched", len(b.Transactions))
		metrics.StaleHeightRewrites.WithLabelValues(chain).Inc()
		return m.persist(ctx, b, true, review)
	}

	heightTotal, err := m.store.TransactionCountAtHeight(ctx, chain, b.Number)
	if err != nil {
		return outcomeNone, fmt.Errorf("reconcile block %d: %w", b.Number, err)
	}

	if heightTotal == len(b.Transactions) {
		return outcomeAlreadyExists, nil
	}

	// Extra rows at this height belong to uncled block versions; clear
	// and rewrite so only the current fetch's associations remain.
	m.log.Info("stale transactions at height, rewriting",
		"block", b.Number, "hash", b.Hash,
		"height_total", heightTotal, "fetched", len(b.Transactions))
	metrics.StaleHeightRewrites.WithLabelValues(chain).Inc()
	return m.persist(ctx, b, true, review)
}
