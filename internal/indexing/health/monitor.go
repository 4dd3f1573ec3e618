package health

import (
	"context"

	"github.com/BlockadeLabs/evm-cache/internal/indexing/metrics"
	"github.com/BlockadeLabs/evm-cache/internal/monitor"
)

// Status tiers, worst case wins.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// StatusSource exposes the cache monitor's current position.
type StatusSource interface {
	Status() monitor.Status
}

// HeadFetcher reports the node's current head height.
type HeadFetcher interface {
	LatestNumber(ctx context.Context) (uint64, error)
}

// DepthReporter reports how many heights wait on the heal queue. Optional.
type DepthReporter interface {
	Depth(ctx context.Context) (int, error)
}

// Pinger reports storage connectivity. Optional.
type Pinger interface {
	Health(ctx context.Context) error
}

// Config holds the status tier thresholds.
type Config struct {
	// DegradedLag / CriticalLag are head-lag thresholds in blocks.
	DegradedLag int64
	CriticalLag int64
	// DegradedQueueDepth is the heal-queue depth beyond which the chain is
	// considered degraded.
	DegradedQueueDepth int
}

func (c *Config) withDefaults() {
	if c.DegradedLag == 0 {
		c.DegradedLag = 10
	}
	if c.CriticalLag == 0 {
		c.CriticalLag = 50
	}
	if c.DegradedQueueDepth == 0 {
		c.DegradedQueueDepth = 50
	}
}

// Report is the health endpoint's body.
type Report struct {
	Status         Status         `json:"status"`
	Monitor        monitor.Status `json:"monitor"`
	LatestBlock    uint64         `json:"latest_block"`
	BlockLag       int64          `json:"block_lag"`
	HealQueueDepth int            `json:"heal_queue_depth"`
}

// Monitor derives the health report: cursor position, head lag from an
// independent head poll, heal-queue depth, and a status tier.
type Monitor struct {
	cfg    Config
	source StatusSource
	heads  HeadFetcher
	heal   DepthReporter
	db     Pinger
}

// NewMonitor creates a health monitor. heal and db may be nil.
func NewMonitor(cfg Config, source StatusSource, heads HeadFetcher, heal DepthReporter, db Pinger) *Monitor {
	cfg.withDefaults()
	return &Monitor{
		cfg:    cfg,
		source: source,
		heads:  heads,
		heal:   heal,
		db:     db,
	}
}

// CheckHealth builds the current report. Worst observation wins the tier.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	st := m.source.Status()
	report := Report{
		Status:  StatusHealthy,
		Monitor: st,
	}

	if m.db != nil {
		if err := m.db.Health(ctx); err != nil {
			report.Status = StatusCritical
		}
	}

	latest, err := m.heads.LatestNumber(ctx)
	if err != nil {
		// Node unreachable: ingestion is stalled but data is intact.
		report.degradeTo(StatusDegraded)
	} else {
		report.LatestBlock = latest
		// The cursor is the next height to fetch, so the highest
		// persisted height is cursor-1.
		report.BlockLag = int64(latest) - int64(st.Cursor) + 1
		if report.BlockLag < 0 {
			report.BlockLag = 0
		}
		metrics.ChainHeadHeight.WithLabelValues(st.BlockchainID).Set(float64(latest))

		if report.BlockLag > m.cfg.CriticalLag {
			report.degradeTo(StatusCritical)
		} else if report.BlockLag > m.cfg.DegradedLag {
			report.degradeTo(StatusDegraded)
		}
	}

	if m.heal != nil {
		if depth, err := m.heal.Depth(ctx); err == nil {
			report.HealQueueDepth = depth
			if depth > m.cfg.DegradedQueueDepth {
				report.degradeTo(StatusDegraded)
			}
		}
	}

	return report
}

func (r *Report) degradeTo(s Status) {
	if r.Status == StatusCritical {
		return
	}
	if s == StatusCritical || r.Status == StatusHealthy {
		r.Status = s
	}
}
