package config

import (
	redisclient "github.com/BlockadeLabs/evm-cache/internal/infra/redis"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Blockchain BlockchainConfig   `yaml:"blockchain"`
	Monitor    MonitorConfig      `yaml:"monitor"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
	ABI        ABIConfig          `yaml:"abi"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// BlockchainConfig identifies the chain and its RPC endpoints.
type BlockchainConfig struct {
	ID         string           `yaml:"id"`
	RPCTimeout Duration         `yaml:"rpc_timeout"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds settings for an RPC provider.
type ProviderConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// MonitorConfig holds ingestion loop settings. Nil overrides mean unset.
type MonitorConfig struct {
	StartBlockOverride            *uint64  `yaml:"start_block_override"`
	EndBlockOverride              *uint64  `yaml:"end_block_override"`
	ReviewBlockLimit              int64    `yaml:"review_block_limit"`
	ComprehensiveReviewBlockLimit int64    `yaml:"comprehensive_review_block_limit"`
	ComprehensiveReviewCountMod   uint64   `yaml:"comprehensive_review_count_mod"`
	HeadPollInterval              Duration `yaml:"head_poll_interval"`
	ComprehensiveReviewInterval   Duration `yaml:"comprehensive_review_interval"`
	ReceiptConcurrency            int      `yaml:"receipt_concurrency"`
	ReviewConcurrency             int      `yaml:"review_concurrency"`
}

// ABIConfig points at the decoder's event set.
type ABIConfig struct {
	Path string `yaml:"path"`
}
