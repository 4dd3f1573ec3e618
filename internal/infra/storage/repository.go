package storage

import (
	"context"
	"errors"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
)

var (
	// ErrNoRowsAffected is returned by inserts that matched an existing row
	// (ON CONFLICT DO NOTHING). A zero-row block or transaction insert is a
	// schema-level inconsistency the monitor treats as fatal.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// BlockReader is the read side the reconciler and startup path consume.
type BlockReader interface {
	// LatestNumber returns the highest stored block number for the chain.
	// ok is false when the chain has no rows yet.
	LatestNumber(ctx context.Context, blockchainID string) (number uint64, ok bool, err error)

	// GetByHash returns the stored block row for (blockchainID, hash), or
	// nil when the hash is unknown.
	GetByHash(ctx context.Context, blockchainID, hash string) (*domain.BlockRef, error)

	// TransactionCountAtHeight sums stored transactions across all block
	// rows at the height, including rows left behind by reorgs.
	TransactionCountAtHeight(ctx context.Context, blockchainID string, number uint64) (int, error)
}

// EventWriter is the narrow surface handed to the log decoder.
type EventWriter interface {
	InsertLogEvent(ctx context.Context, ev *domain.LogEvent) error
}

// UnitOfWork brackets one block's persistence in a single transaction.
// Callers must finish with Commit or Rollback; Rollback after Commit is a
// no-op so it is safe to defer.
type UnitOfWork interface {
	EventWriter

	InsertBlock(ctx context.Context, blockchainID string, b *domain.Block) error

	DeleteLogsAtHeight(ctx context.Context, blockchainID string, number uint64) error
	DeleteTransactionsAtHeight(ctx context.Context, blockchainID string, number uint64) error
	DeleteOmmersAtHeight(ctx context.Context, blockchainID string, number uint64) error
	DeleteBlocksAtHeight(ctx context.Context, blockchainID string, number uint64) error

	InsertOmmer(ctx context.Context, blockchainID, ommerHash, niblingHash string) error
	InsertTransaction(ctx context.Context, blockHash string, tx *domain.Transaction, receipt *domain.Receipt) error

	DeleteLogsByTransactionHash(ctx context.Context, txHash string) error
	// InsertLog stores one log row and returns the store-assigned log id.
	InsertLog(ctx context.Context, lg *domain.Log) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the full storage contract the monitor owns. Begin hands out a
// unit of work on its own pooled session, so concurrent review pipelines
// each get an independent transaction.
type Store interface {
	BlockReader

	Begin(ctx context.Context) (UnitOfWork, error)
	Close()
}
