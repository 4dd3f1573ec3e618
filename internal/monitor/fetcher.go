package monitor

import (
	"context"
	"fmt"
	"strings"
)

// transientMarkers are matched case-insensitively against node error text.
// These are the failure shapes an endpoint switch actually fixes.
var transientMarkers = []string{
	"invalid json rpc response",
	"connection timeout",
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// processHeight runs one height through fetch, reconcile, and persist.
// Negative heights come from review windows near genesis and short-circuit
// to atHead.
func (m *Monitor) processHeight(ctx context.Context, number int64, review bool) (outcome, error) {
	if number < 0 {
		return outcomeAtHead, nil
	}

	// The token is captured before the call: if the error fires twice, or
	// another pipeline already cycled, the stale token makes the second
	// cycle a no-op.
	version := m.client.Version()

	block, err := m.client.BlockByNumber(ctx, uint64(number))
	if err != nil {
		if ctx.Err() != nil {
			return outcomeNone, ctx.Err()
		}
		if isTransient(err) {
			m.client.Cycle(version)
			m.log.Warn("transient node error, cycled endpoint", "block", number, "error", err)
			return outcomeRetry, nil
		}

		m.log.Error("unrecoverable node error", "block", number, "error", err)
		m.pause(ctx, fatalPause)
		return outcomeNone, fmt.Errorf("fetch block %d: %w", number, err)
	}

	if block == nil {
		return outcomeAtHead, nil
	}

	return m.reconcile(ctx, block, review)
}
