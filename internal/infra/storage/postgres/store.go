package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

// Store implements storage.Store on top of PostgreSQL.
type Store struct {
	db *DB
}

// NewStore creates a PostgreSQL-backed store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// LatestNumber returns the highest stored block number for the chain.
func (s *Store) LatestNumber(ctx context.Context, blockchainID string) (uint64, bool, error) {
	query := `
		SELECT number
		FROM block
		WHERE blockchain_id = $1
		ORDER BY number DESC
		LIMIT 1
	`

	var number int64
	err := s.db.Reads.GetContext(ctx, &number, query, blockchainID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get latest block: %w", err)
	}

	return uint64(number), true, nil
}

// GetByHash returns the stored block row for the hash, or nil when absent.
func (s *Store) GetByHash(ctx context.Context, blockchainID, hash string) (*domain.BlockRef, error) {
	query := `
		SELECT number, hash, transaction_count
		FROM block
		WHERE blockchain_id = $1 AND hash = $2
	`

	var row domain.BlockRef
	err := s.db.Reads.GetContext(ctx, &row, query, blockchainID, hash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block by hash: %w", err)
	}

	return &row, nil
}

// TransactionCountAtHeight sums stored transactions across all block rows
// at the height, including rows orphaned by reorgs.
func (s *Store) TransactionCountAtHeight(ctx context.Context, blockchainID string, number uint64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM transaction t
		JOIN block b ON t.block_hash = b.hash
		WHERE b.blockchain_id = $1 AND b.number = $2
	`

	var count int
	if err := s.db.Reads.GetContext(ctx, &count, query, blockchainID, int64(number)); err != nil {
		return 0, fmt.Errorf("failed to count transactions at height: %w", err)
	}
	return count, nil
}

// Begin starts a unit of work on its own pooled session.
func (s *Store) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Close releases the underlying handles.
func (s *Store) Close() {
	s.db.Close()
}
