package health

import (
	"context"
	"errors"
	"testing"

	"github.com/BlockadeLabs/evm-cache/internal/monitor"
)

type stubSource struct {
	cursor uint64
}

func (s *stubSource) Status() monitor.Status {
	return monitor.Status{BlockchainID: "1", Cursor: s.cursor}
}

type stubHeads struct {
	latest uint64
	err    error
}

func (s *stubHeads) LatestNumber(ctx context.Context) (uint64, error) {
	return s.latest, s.err
}

type stubDepth struct {
	depth int
	err   error
}

func (s *stubDepth) Depth(ctx context.Context) (int, error) {
	return s.depth, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Health(ctx context.Context) error {
	return s.err
}

func TestCheckHealthAtHeadIsHealthy(t *testing.T) {
	// Cursor 101 means height 100 is persisted; head 100 is zero lag.
	m := NewMonitor(Config{}, &stubSource{cursor: 101}, &stubHeads{latest: 100}, nil, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", report.Status)
	}
	if report.BlockLag != 0 {
		t.Errorf("lag = %d, want 0", report.BlockLag)
	}
	if report.LatestBlock != 100 {
		t.Errorf("latest = %d, want 100", report.LatestBlock)
	}
	if report.Monitor.Cursor != 101 {
		t.Errorf("cursor = %d, want 101", report.Monitor.Cursor)
	}
}

func TestCheckHealthLagTiers(t *testing.T) {
	cases := []struct {
		latest uint64
		want   Status
	}{
		{105, StatusHealthy},   // lag 6
		{120, StatusDegraded},  // lag 21 > 10
		{200, StatusCritical},  // lag 101 > 50
	}

	for _, tc := range cases {
		m := NewMonitor(Config{}, &stubSource{cursor: 100}, &stubHeads{latest: tc.latest}, nil, nil)
		report := m.CheckHealth(context.Background())
		if report.Status != tc.want {
			t.Errorf("head %d: status = %s, want %s (lag %d)", tc.latest, report.Status, tc.want, report.BlockLag)
		}
	}
}

func TestCheckHealthUnreachableNodeDegrades(t *testing.T) {
	m := NewMonitor(Config{}, &stubSource{cursor: 100}, &stubHeads{err: errors.New("connection timeout")}, nil, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded", report.Status)
	}
	if report.LatestBlock != 0 || report.BlockLag != 0 {
		t.Errorf("report carries stale head data: %+v", report)
	}
}

func TestCheckHealthDatabaseFailureIsCritical(t *testing.T) {
	m := NewMonitor(Config{},
		&stubSource{cursor: 101},
		&stubHeads{latest: 100},
		nil,
		&stubPinger{err: errors.New("connection refused")},
	)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("status = %s, want critical", report.Status)
	}
}

func TestCheckHealthHealQueueDepth(t *testing.T) {
	m := NewMonitor(Config{}, &stubSource{cursor: 101}, &stubHeads{latest: 100}, &stubDepth{depth: 7}, nil)

	report := m.CheckHealth(context.Background())
	if report.HealQueueDepth != 7 {
		t.Errorf("depth = %d, want 7", report.HealQueueDepth)
	}
	if report.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy for shallow queue", report.Status)
	}

	m = NewMonitor(Config{}, &stubSource{cursor: 101}, &stubHeads{latest: 100}, &stubDepth{depth: 80}, nil)
	report = m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded for deep queue", report.Status)
	}
}

func TestCheckHealthWorstTierWins(t *testing.T) {
	// Critical from the database is not downgraded by a healthy node.
	m := NewMonitor(Config{},
		&stubSource{cursor: 101},
		&stubHeads{latest: 100},
		&stubDepth{depth: 80},
		&stubPinger{err: errors.New("down")},
	)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("status = %s, want critical", report.Status)
	}
}
