package monitor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
)

// review runs one backfill sweep behind the head, then sleeps before the
// loop re-polls the same cursor. Every Nth idle poll widens the window to
// the comprehensive limit. Review pipelines run the full fetch →
// reconcile → persist path concurrently, each on its own pooled session,
// and never touch the cursor.
func (m *Monitor) review(ctx context.Context, head uint64) error {
	counter := m.reviewCounter.Add(1)

	limit := m.cfg.ReviewBlockLimit
	pause := m.cfg.HeadPollInterval
	kind := "short"
	if counter%m.cfg.ComprehensiveReviewCountMod == 0 {
		limit = m.cfg.ComprehensiveReviewBlockLimit
		pause = m.cfg.ComprehensiveReviewInterval
		kind = "comprehensive"
	}

	heights := reviewWindow(int64(head), limit)
	heights = append(heights, m.drainHealHeights(ctx, int64(head))...)

	if len(heights) > 0 {
		m.log.Debug("review pass", "kind", kind, "head", head, "heights", len(heights))
		metrics.ReviewPasses.WithLabelValues(m.cfg.BlockchainID, kind).Inc()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.cfg.ReviewConcurrency)

		for _, h := range heights {
			h := h
			g.Go(func() error {
				return m.reviewHeight(gctx, h)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	m.pause(ctx, pause)
	return nil
}

// reviewWindow lists the heights of one sweep: [head-limit, head). Heights
// below genesis are kept; the fetcher short-circuits them.
func reviewWindow(head, limit int64) []int64 {
	if limit <= 0 {
		return nil
	}

	heights := make([]int64, 0, limit)
	for h := head - limit; h < head; h++ {
		heights = append(heights, h)
	}
	return heights
}

// drainHealHeights pulls queued heal heights behind the head. Entries at
// or above the head are left on the queue by Drain, so a restart with a
// temporarily lower head cannot lose them. No dedup against the window:
// the pipeline is idempotent, duplicates just reconcile to alreadyExists.
func (m *Monitor) drainHealHeights(ctx context.Context, head int64) []int64 {
	if m.heal == nil || head <= 0 {
		return nil
	}

	queued, err := m.heal.Drain(ctx, m.cfg.HealDrainLimit, uint64(head))
	if err != nil {
		m.log.Warn("failed to drain heal queue", "error", err)
		return nil
	}

	heights := make([]int64, 0, len(queued))
	for _, n := range queued {
		heights = append(heights, int64(n))
	}
	if len(heights) > 0 {
		m.log.Info("healing queued heights", "count", len(heights))
	}
	return heights
}

// reviewHeight runs one review pipeline. A transient fetch gets one
// post-cycle retry; if that also fails transiently the height goes to the
// heal queue instead of stalling the sweep.
func (m *Monitor) reviewHeight(ctx context.Context, number int64) error {
	out, err := m.processHeight(ctx, number, true)
	if err != nil {
		return err
	}
	if out != outcomeRetry {
		return nil
	}

	out, err = m.processHeight(ctx, number, true)
	if err != nil {
		return err
	}
	if out == outcomeRetry && m.heal != nil && number >= 0 {
		if err := m.heal.Enqueue(ctx, uint64(number), "transient fetch failure during review"); err != nil {
			m.log.Warn("failed to enqueue heal entry", "block", number, "error", err)
		}
	}
	return nil
}
