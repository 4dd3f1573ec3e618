package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL           string `yaml:"url"`
	MaxConns      int    `yaml:"max_conns"`
	MinConns      int    `yaml:"min_conns"`
	MigrationsDir string `yaml:"migrations_dir"`
}

// DB wraps the two handles the cache uses: a database/sql handle (via sqlx)
// for read queries and migrations, and a pgx pool for the write-side units
// of work, one pooled session per in-flight pipeline.
type DB struct {
	Reads *sqlx.DB
	Pool  *pgxpool.Pool
}

// NewDB opens both handles and verifies connectivity, retrying the initial
// ping with fibonacci backoff since the database may still be coming up
// when the monitor starts.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	reads, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		reads.SetMaxOpenConns(cfg.MaxConns)
	} else {
		reads.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		reads.SetMaxIdleConns(cfg.MinConns)
	} else {
		reads.SetMaxIdleConns(2)
	}
	reads.SetConnMaxLifetime(time.Hour)
	reads.SetConnMaxIdleTime(30 * time.Minute)

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := reads.PingContext(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = reads.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		_ = reads.Close()
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		_ = reads.Close()
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &DB{Reads: reads, Pool: pool}, nil
}

// Migrate runs goose migrations against the read handle.
func (db *DB) Migrate(dir string) error {
	if dir == "" {
		dir = "migrations"
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db.Reads.DB, dir); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}
	return nil
}

// Health checks if the database is healthy.
func (db *DB) Health(ctx context.Context) error {
	return db.Reads.PingContext(ctx)
}

// Close releases both handles.
func (db *DB) Close() {
	db.Pool.Close()
	_ = db.Reads.Close()
}
