package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BlockadeLabs/evm-cache/internal/core/config"
	"github.com/BlockadeLabs/evm-cache/internal/decoder"
	"github.com/BlockadeLabs/evm-cache/internal/indexing/health"
	"github.com/BlockadeLabs/evm-cache/internal/infra/chain/evm"
	redisclient "github.com/BlockadeLabs/evm-cache/internal/infra/redis"
	"github.com/BlockadeLabs/evm-cache/internal/infra/rpc"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage/memory"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage/postgres"
	"github.com/BlockadeLabs/evm-cache/internal/monitor"
)

// App wires the cache monitor and its collaborators together and manages
// their lifecycle.
type App struct {
	cfg          config.AppConfig
	mon          *monitor.Monitor
	healthServer *health.Server
	store        storage.Store
	db           *postgres.DB
	redisClient  *redisclient.Client
	rpcClient    *rpc.Client
	log          *slog.Logger
	done         chan error
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg config.AppConfig) (*App, error) {
	// 1. Storage
	var store storage.Store
	var db *postgres.DB
	var err error

	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
			return nil, err
		}
		store = postgres.NewStore(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store = memory.NewStore()
		slog.Info("Using Memory storage")
	}

	// 2. Node client with endpoint failover
	providers := make([]rpc.Provider, 0, len(cfg.Blockchain.Providers))
	for _, p := range cfg.Blockchain.Providers {
		providers = append(providers, rpc.NewHTTPProvider(p.Name, p.URL, cfg.Blockchain.RPCTimeout.Std()))
	}
	rpcClient, err := rpc.NewClient(providers)
	if err != nil {
		return nil, err
	}
	adapter := evm.NewAdapter(rpcClient)

	// 3. Heal queue (optional)
	var redisClient *redisclient.Client
	var heal monitor.HealQueue
	var healDepth health.DepthReporter
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, heal queue disabled", "error", err)
		} else {
			healQueue := redisclient.NewHealQueue(redisClient, cfg.Blockchain.ID)
			heal = healQueue
			healDepth = healQueue
			slog.Info("Heal queue enabled")
		}
	}

	// 4. Log decoder
	abiCfg, err := decoder.LoadABIConfig(cfg.ABI.Path)
	if err != nil {
		return nil, err
	}
	dec := decoder.NewABIDecoder(abiCfg)
	slog.Info("Loaded ABI config", "events", len(abiCfg.Events))

	// 5. Monitor
	mon := monitor.New(monitor.Config{
		BlockchainID:                  cfg.Blockchain.ID,
		StartBlockOverride:            cfg.Monitor.StartBlockOverride,
		EndBlockOverride:              cfg.Monitor.EndBlockOverride,
		ReviewBlockLimit:              cfg.Monitor.ReviewBlockLimit,
		ComprehensiveReviewBlockLimit: cfg.Monitor.ComprehensiveReviewBlockLimit,
		ComprehensiveReviewCountMod:   cfg.Monitor.ComprehensiveReviewCountMod,
		HeadPollInterval:              cfg.Monitor.HeadPollInterval.Std(),
		ComprehensiveReviewInterval:   cfg.Monitor.ComprehensiveReviewInterval.Std(),
		ReceiptConcurrency:            cfg.Monitor.ReceiptConcurrency,
		ReviewConcurrency:             cfg.Monitor.ReviewConcurrency,
	}, adapter, store, dec, heal)

	// 6. Health monitor + server
	var pinger health.Pinger
	if db != nil {
		pinger = db
	}
	healthMon := health.NewMonitor(health.Config{}, mon, adapter, healDepth, pinger)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &App{
		cfg:          cfg,
		mon:          mon,
		healthServer: healthServer,
		store:        store,
		db:           db,
		redisClient:  redisClient,
		rpcClient:    rpcClient,
		log:          slog.Default(),
		done:         make(chan error, 1),
	}, nil
}

// Start launches the health server and the ingestion loop.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Debug("Health server closed", "error", err)
		}
	}()

	go func() {
		a.done <- a.mon.Run(ctx)
	}()

	return nil
}

// Done yields the monitor's terminal result: nil on clean termination
// (end-block override or context cancellation), an error otherwise.
func (a *App) Done() <-chan error {
	return a.done
}

// Stop shuts down the app's components.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping monitor...")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if err := a.rpcClient.Close(); err != nil {
		a.log.Warn("Failed to close RPC client", "error", err)
	}

	a.store.Close()

	return a.healthServer.Stop(ctx)
}
