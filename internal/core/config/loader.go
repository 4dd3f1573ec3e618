package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Blockchain.ID == "" {
		cfg.Blockchain.ID = "1"
	}
	if cfg.Blockchain.RPCTimeout == 0 {
		cfg.Blockchain.RPCTimeout = Duration(30 * time.Second)
	}
	if len(cfg.Blockchain.Providers) == 0 {
		return nil, fmt.Errorf("at least one rpc provider is required")
	}

	return &cfg, nil
}
