package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
)

const entryTTL = 24 * time.Hour

// HealQueue remembers heights that committed without complete data so the
// review scheduler can revisit them ahead of its sliding window. Entries
// are kept in a sorted set scored by attempt count, fewest attempts first.
type HealQueue struct {
	rdb          *redis.Client
	blockchainID string
}

// NewHealQueue creates a heal queue scoped to one chain.
func NewHealQueue(client *Client, blockchainID string) *HealQueue {
	return &HealQueue{rdb: client.rdb, blockchainID: blockchainID}
}

func (q *HealQueue) queueKey() string {
	return fmt.Sprintf("heal_queue:%s", q.blockchainID)
}

func (q *HealQueue) entryKey(id string) string {
	return fmt.Sprintf("heal_entry:%s:%s", q.blockchainID, id)
}

// Enqueue records a height needing a revisit. A height already queued is
// left in place with its attempt count bumped.
func (q *HealQueue) Enqueue(ctx context.Context, number uint64, reason string) error {
	entry := domain.HealEntry{
		ID:          uuid.NewString(),
		BlockNumber: number,
		Reason:      reason,
		LastAttempt: time.Now(),
	}

	// One entry per height: reuse the existing id if the height is queued.
	ids, err := q.rdb.ZRange(ctx, q.queueKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, q.entryKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get heal entry: %w", err)
		}
		var existing domain.HealEntry
		if err := json.Unmarshal(data, &existing); err != nil {
			continue
		}
		if existing.BlockNumber == number {
			entry = existing
			entry.Attempts++
			entry.LastAttempt = time.Now()
			break
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal heal entry: %w", err)
	}

	if err := q.rdb.Set(ctx, q.entryKey(entry.ID), data, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heal entry: %w", err)
	}

	if err := q.rdb.ZAdd(ctx, q.queueKey(), redis.Z{
		Score:  float64(entry.Attempts),
		Member: entry.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to heal queue: %w", err)
	}

	q.updateDepthGauge(ctx)
	return nil
}

// Drain pops up to max heights below the given bound for the next review
// pass. Entries at or above the bound stay queued untouched, so a height
// recorded ahead of a restarted (temporarily lower) head is retried once
// the head catches up. Popped heights that still need healing get
// re-enqueued by the persister when the review pipeline runs them.
func (q *HealQueue) Drain(ctx context.Context, max int, below uint64) ([]uint64, error) {
	if max <= 0 {
		return nil, nil
	}

	ids, err := q.rdb.ZRange(ctx, q.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	var numbers []uint64
	for _, id := range ids {
		if len(numbers) >= max {
			break
		}

		data, err := q.rdb.Get(ctx, q.entryKey(id)).Bytes()
		if err == redis.Nil {
			q.rdb.ZRem(ctx, q.queueKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get heal entry: %w", err)
		}

		var entry domain.HealEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			q.rdb.ZRem(ctx, q.queueKey(), id)
			q.rdb.Del(ctx, q.entryKey(id))
			continue
		}
		if entry.BlockNumber >= below {
			continue
		}

		numbers = append(numbers, entry.BlockNumber)
		q.rdb.ZRem(ctx, q.queueKey(), id)
		q.rdb.Del(ctx, q.entryKey(id))
	}

	q.updateDepthGauge(ctx)
	return numbers, nil
}

// Depth returns the number of queued heights.
func (q *HealQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.rdb.ZCard(ctx, q.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

func (q *HealQueue) updateDepthGauge(ctx context.Context) {
	if count, err := q.rdb.ZCard(ctx, q.queueKey()).Result(); err == nil {
		metrics.HealQueueDepth.WithLabelValues(q.blockchainID).Set(float64(count))
	}
}
