package decoder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
)

const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

type captureWriter struct {
	events []*domain.LogEvent
}

func (w *captureWriter) InsertLogEvent(ctx context.Context, ev *domain.LogEvent) error {
	w.events = append(w.events, ev)
	return nil
}

func transferConfig() *ABIConfig {
	return &ABIConfig{Events: []EventABI{
		{SignatureTopic: transferTopic, Name: "Transfer", Inputs: []string{"from", "to"}},
	}}
}

func TestDecodeLogWritesMatchingEvent(t *testing.T) {
	dec := NewABIDecoder(transferConfig())
	w := &captureWriter{}

	lg := &domain.Log{
		TransactionHash: "0xtx",
		Address:         "0xToKeN",
		Data:            "0x64",
		Topics:          []string{transferTopic, "0xfrom", "0xto"},
	}

	if err := dec.DecodeLog(context.Background(), w, 17, lg); err != nil {
		t.Fatal(err)
	}

	if len(w.events) != 1 {
		t.Fatalf("events = %d, want 1", len(w.events))
	}
	ev := w.events[0]
	if ev.LogID != 17 || ev.Name != "Transfer" {
		t.Errorf("event identity: %+v", ev)
	}
	if ev.ContractAddress != "0xtoken" {
		t.Errorf("address not lowercased: %s", ev.ContractAddress)
	}
	if ev.Args["from"] != "0xfrom" || ev.Args["to"] != "0xto" {
		t.Errorf("args = %v", ev.Args)
	}
	if ev.Args["data"] != "0x64" {
		t.Errorf("data arg = %v", ev.Args["data"])
	}
}

func TestDecodeLogIgnoresUnknownSignature(t *testing.T) {
	dec := NewABIDecoder(transferConfig())
	w := &captureWriter{}

	lg := &domain.Log{Topics: []string{"0xsomethingelse"}}
	if err := dec.DecodeLog(context.Background(), w, 1, lg); err != nil {
		t.Fatal(err)
	}
	if len(w.events) != 0 {
		t.Errorf("unexpected events: %v", w.events)
	}
}

func TestDecodeLogIgnoresAnonymousLog(t *testing.T) {
	dec := NewABIDecoder(transferConfig())
	w := &captureWriter{}

	if err := dec.DecodeLog(context.Background(), w, 1, &domain.Log{}); err != nil {
		t.Fatal(err)
	}
	if len(w.events) != 0 {
		t.Errorf("unexpected events: %v", w.events)
	}
}

func TestLoadABIConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abi.yaml")
	content := `
events:
  - signature_topic: "` + transferTopic + `"
    name: Transfer
    inputs: [from, to]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadABIConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Events) != 1 || cfg.Events[0].Name != "Transfer" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestLoadABIConfigEmptyPath(t *testing.T) {
	cfg, err := LoadABIConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Events) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadABIConfigRejectsIncompleteEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abi.yaml")
	if err := os.WriteFile(path, []byte("events:\n  - name: Broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadABIConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}
