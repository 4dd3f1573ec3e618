package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
blockchain:
  providers:
    - name: primary
      url: http://localhost:8545
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Blockchain.ID != "1" {
		t.Errorf("chain id = %s, want default 1", cfg.Blockchain.ID)
	}
	if cfg.Blockchain.RPCTimeout.Std() != 30*time.Second {
		t.Errorf("rpc timeout = %v, want 30s", cfg.Blockchain.RPCTimeout.Std())
	}
}

func TestLoadParsesDurationsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
blockchain:
  id: "137"
  rpc_timeout: 5s
  providers:
    - name: primary
      url: http://localhost:8545
monitor:
  start_block_override: 1000
  end_block_override: 2000
  head_poll_interval: 2500ms
  comprehensive_review_interval: 15s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Monitor.StartBlockOverride == nil || *cfg.Monitor.StartBlockOverride != 1000 {
		t.Errorf("start override = %v, want 1000", cfg.Monitor.StartBlockOverride)
	}
	if cfg.Monitor.EndBlockOverride == nil || *cfg.Monitor.EndBlockOverride != 2000 {
		t.Errorf("end override = %v, want 2000", cfg.Monitor.EndBlockOverride)
	}
	if cfg.Monitor.HeadPollInterval.Std() != 2500*time.Millisecond {
		t.Errorf("head poll interval = %v", cfg.Monitor.HeadPollInterval.Std())
	}
	if cfg.Monitor.ComprehensiveReviewInterval.Std() != 15*time.Second {
		t.Errorf("comprehensive interval = %v", cfg.Monitor.ComprehensiveReviewInterval.Std())
	}
}

func TestLoadUnsetOverridesStayNil(t *testing.T) {
	path := writeConfig(t, `
blockchain:
  providers:
    - name: primary
      url: http://localhost:8545
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.StartBlockOverride != nil || cfg.Monitor.EndBlockOverride != nil {
		t.Errorf("unset overrides should be nil: %+v", cfg.Monitor)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_RPC_URL", "http://node.example:8545")
	path := writeConfig(t, `
blockchain:
  providers:
    - name: primary
      url: ${TEST_RPC_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Blockchain.Providers[0].URL != "http://node.example:8545" {
		t.Errorf("url = %s", cfg.Blockchain.Providers[0].URL)
	}
}

func TestLoadRejectsMissingProviders(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error when no providers configured")
	}
}
