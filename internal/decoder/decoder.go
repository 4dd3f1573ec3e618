// Package decoder identifies event logs against a configured set of ABI
// event fragments and writes decoded rows keyed by the store-assigned log
// id. The monitor calls it once per freshly written log.
package decoder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

// Decoder consumes a raw log row and writes decoded rows.
type Decoder interface {
	DecodeLog(ctx context.Context, w storage.EventWriter, logID int64, lg *domain.Log) error
}

// ABIDecoder matches topic zero against known event signatures.
type ABIDecoder struct {
	events map[string]EventABI
	log    *slog.Logger
}

// NewABIDecoder creates a decoder over the loaded ABI config.
func NewABIDecoder(cfg *ABIConfig) *ABIDecoder {
	events := make(map[string]EventABI, len(cfg.Events))
	for _, ev := range cfg.Events {
		events[strings.ToLower(ev.SignatureTopic)] = ev
	}
	return &ABIDecoder{
		events: events,
		log:    slog.Default().With("component", "decoder"),
	}
}

// DecodeLog writes a log_event row when topic zero matches a configured
// event. Unknown signatures are left alone; the raw log row already holds
// everything needed to decode later.
func (d *ABIDecoder) DecodeLog(ctx context.Context, w storage.EventWriter, logID int64, lg *domain.Log) error {
	topic0 := strings.ToLower(lg.Topic(0))
	if topic0 == "" {
		return nil
	}

	ev, ok := d.events[topic0]
	if !ok {
		return nil
	}

	args := make(map[string]string, len(ev.Inputs)+1)
	for i, name := range ev.Inputs {
		// Indexed inputs live in topics 1..3; the remainder share the
		// data blob, which is stored undecoded.
		if i+1 < domain.MaxTopics && lg.Topic(i+1) != "" {
			args[name] = lg.Topic(i + 1)
		}
	}
	if lg.Data != "" && lg.Data != "0x" {
		args["data"] = lg.Data
	}

	event := &domain.LogEvent{
		LogID:           logID,
		Name:            ev.Name,
		ContractAddress: strings.ToLower(lg.Address),
		Args:            args,
	}

	if err := w.InsertLogEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to write decoded event: %w", err)
	}

	d.log.Debug("decoded log", "log_id", logID, "event", ev.Name, "address", event.ContractAddress)
	return nil
}
