package rpc

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
)

// Client fronts an immutable provider list with a version token. The
// active provider is derived from the version, so cycling is a single
// atomic bump: callers that observed a failure pass the version they saw,
// and a stale token makes Cycle a no-op. That removes the double-cycle
// race without any per-fetch flag.
type Client struct {
	providers []Provider
	version   atomic.Uint64
}

// NewClient creates a failover client over one or more providers.
func NewClient(providers []Provider) (*Client, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	return &Client{providers: providers}, nil
}

// Call issues the request on the currently active provider.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	return c.active().Call(ctx, method, params)
}

// Version returns the current failover token. Callers capture it before a
// request and hand it back to Cycle when the request fails.
func (c *Client) Version() uint64 {
	return c.version.Load()
}

// Cycle rotates to the next provider if observed is still the current
// version, and returns the version in effect afterwards. In-flight
// requests on the previous provider may fail; their callers retry.
func (c *Client) Cycle(observed uint64) uint64 {
	if c.version.CompareAndSwap(observed, observed+1) {
		metrics.NodeCycles.Inc()
	}
	return c.version.Load()
}

// ActiveProvider returns the name of the provider requests currently route to.
func (c *Client) ActiveProvider() string {
	return c.active().GetName()
}

// Close closes all providers.
func (c *Client) Close() error {
	var firstErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) active() Provider {
	return c.providers[int(c.version.Load()%uint64(len(c.providers)))]
}
