package monitor

import (
	"context"
	"testing"

	"github.com/BlockadeLabs/evm-cache/internal/infra/storage/memory"
)

func TestReviewWindowSpansLimitBehindHead(t *testing.T) {
	heights := reviewWindow(4, 15)
	if len(heights) != 15 {
		t.Fatalf("window size = %d, want 15", len(heights))
	}
	if heights[0] != -11 {
		t.Errorf("first height = %d, want -11", heights[0])
	}
	if heights[len(heights)-1] != 3 {
		t.Errorf("last height = %d, want 3", heights[len(heights)-1])
	}
}

func TestReviewWindowZeroLimit(t *testing.T) {
	if got := reviewWindow(100, 0); got != nil {
		t.Errorf("expected nil window, got %v", got)
	}
}

func TestComprehensiveWindowSelectionByModulo(t *testing.T) {
	node := newFakeNode()
	m := testMonitor(node, memory.NewStore(), nil, func(c *Config) {
		c.ReviewBlockLimit = 5
		c.ComprehensiveReviewBlockLimit = 50
		c.ComprehensiveReviewCountMod = 2
	})

	ctx := context.Background()
	head := uint64(200)

	// counter 1: short window of 5.
	if err := m.review(ctx, head); err != nil {
		t.Fatalf("short review: %v", err)
	}
	short := len(node.fetched)
	if short != 5 {
		t.Fatalf("short review fetched %d heights, want 5", short)
	}

	// counter 2: comprehensive window of 50.
	if err := m.review(ctx, head); err != nil {
		t.Fatalf("comprehensive review: %v", err)
	}
	if got := len(node.fetched) - short; got != 50 {
		t.Fatalf("comprehensive review fetched %d heights, want 50", got)
	}
}

func TestReviewCounterSelectionIsOnModulo(t *testing.T) {
	node := newFakeNode()
	m := testMonitor(node, memory.NewStore(), nil, func(c *Config) {
		c.ReviewBlockLimit = 1
		c.ComprehensiveReviewBlockLimit = 3
		c.ComprehensiveReviewCountMod = 4
	})
	// Wraparound is a property of the modulo, not the absolute counter.
	m.reviewCounter.Store(^uint64(0) - 1) // counter becomes MaxUint64 on first pass

	ctx := context.Background()
	if err := m.review(ctx, 100); err != nil {
		t.Fatalf("review: %v", err)
	}
	if got := len(node.fetched); got != 1 {
		t.Fatalf("pre-wrap review fetched %d, want short window of 1", got)
	}

	// Counter wraps to 0: 0 % 4 == 0 selects the comprehensive window.
	if err := m.review(ctx, 100); err != nil {
		t.Fatalf("review after wrap: %v", err)
	}
	if got := len(node.fetched) - 1; got != 3 {
		t.Fatalf("post-wrap review fetched %d, want comprehensive window of 3", got)
	}
}

func TestDrainedHealHeightsJoinTheWindow(t *testing.T) {
	node := newFakeNode()
	node.blocks[42] = mkBlock(42, "0xheal", "0xp")

	heal := &fakeHealQueue{entries: []uint64{42, 500}}
	m := testMonitor(node, memory.NewStore(), heal, func(c *Config) {
		c.ReviewBlockLimit = 1
	})

	// Head 100: height 42 qualifies, height 500 is ahead and must stay queued.
	if err := m.review(context.Background(), 100); err != nil {
		t.Fatalf("review: %v", err)
	}

	if node.fetchCount(42) != 1 {
		t.Errorf("queued height 42 was not reviewed")
	}
	if node.fetchCount(500) != 0 {
		t.Errorf("height ahead of head was reviewed")
	}
	if got := heal.queued(); len(got) != 1 || got[0] != 500 {
		t.Errorf("height ahead of head was dropped from the queue: %v", got)
	}

	// Once the head passes it, the retained height is healed.
	if err := m.review(context.Background(), 600); err != nil {
		t.Fatalf("review at higher head: %v", err)
	}
	if node.fetchCount(500) != 1 {
		t.Errorf("retained height 500 was not reviewed after head advanced")
	}
}
