package decoder

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// EventABI describes one event fragment the decoder recognises.
type EventABI struct {
	// SignatureTopic is keccak256 of the canonical event signature, as it
	// appears in topic zero.
	SignatureTopic string `yaml:"signature_topic"`
	Name           string `yaml:"name"`
	// Inputs names the indexed inputs in topic order.
	Inputs []string `yaml:"inputs"`
}

// ABIConfig is the decoder's configured event set.
type ABIConfig struct {
	Events []EventABI `yaml:"events"`
}

// LoadABIConfig reads the event set from a YAML file. An empty path yields
// an empty config, which disables decoding without disabling log capture.
func LoadABIConfig(path string) (*ABIConfig, error) {
	if path == "" {
		return &ABIConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read abi config: %w", err)
	}

	var cfg ABIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse abi config: %w", err)
	}

	for i, ev := range cfg.Events {
		if ev.SignatureTopic == "" || ev.Name == "" {
			return nil, fmt.Errorf("abi config event %d missing signature_topic or name", i)
		}
	}

	return &cfg, nil
}
