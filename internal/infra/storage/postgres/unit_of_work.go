package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

// UnitOfWork bundles one block's writes into a single pgx transaction.
// Inserts use ON CONFLICT DO NOTHING. A conflicting block, transaction or
// log row surfaces as storage.ErrNoRowsAffected instead of a constraint
// error, and the monitor decides which of those are fatal; a conflicting
// ommer or log_event row is silently kept as it is.
type UnitOfWork struct {
	tx   pgx.Tx
	done bool
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("transaction already completed")
	}
	u.done = true
	return u.tx.Commit(ctx)
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback(ctx)
}

// InsertBlock inserts the block row with its derived transaction count.
func (u *UnitOfWork) InsertBlock(ctx context.Context, blockchainID string, b *domain.Block) error {
	query := `
		INSERT INTO block (
			blockchain_id, number, hash, parent_hash, nonce,
			gas_limit, gas_used, timestamp, sha3_uncles, logs_bloom,
			transactions_root, receipts_root, state_root, mix_hash, miner,
			difficulty, extra_data, size, transaction_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (blockchain_id, hash) DO NOTHING
	`

	tag, err := u.tx.Exec(ctx, query,
		blockchainID, int64(b.Number), b.Hash, b.ParentHash, b.Nonce,
		int64(b.GasLimit), int64(b.GasUsed), int64(b.Timestamp), b.SHA3Uncles, b.LogsBloom,
		b.TransactionsRoot, b.ReceiptsRoot, b.StateRoot, b.MixHash, b.Miner,
		b.Difficulty, b.ExtraData, int64(b.Size), len(b.Transactions),
	)
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNoRowsAffected
	}
	return nil
}

// DeleteLogsAtHeight deletes all logs belonging to transactions stored at
// the height, across every block row at that height.
func (u *UnitOfWork) DeleteLogsAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	query := `
		DELETE FROM log
		WHERE transaction_hash IN (
			SELECT t.hash
			FROM transaction t
			JOIN block b ON t.block_hash = b.hash
			WHERE b.blockchain_id = $1 AND b.number = $2
		)
	`
	if _, err := u.tx.Exec(ctx, query, blockchainID, int64(number)); err != nil {
		return fmt.Errorf("failed to delete logs at height: %w", err)
	}
	return nil
}

// DeleteTransactionsAtHeight deletes all transactions stored at the height.
func (u *UnitOfWork) DeleteTransactionsAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	query := `
		DELETE FROM transaction
		WHERE block_hash IN (
			SELECT hash FROM block WHERE blockchain_id = $1 AND number = $2
		)
	`
	if _, err := u.tx.Exec(ctx, query, blockchainID, int64(number)); err != nil {
		return fmt.Errorf("failed to delete transactions at height: %w", err)
	}
	return nil
}

// DeleteOmmersAtHeight deletes ommers referenced by block rows at the height.
func (u *UnitOfWork) DeleteOmmersAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	query := `
		DELETE FROM ommer
		WHERE blockchain_id = $1 AND nibling_block_hash IN (
			SELECT hash FROM block WHERE blockchain_id = $1 AND number = $2
		)
	`
	if _, err := u.tx.Exec(ctx, query, blockchainID, int64(number)); err != nil {
		return fmt.Errorf("failed to delete ommers at height: %w", err)
	}
	return nil
}

// DeleteBlocksAtHeight deletes all block rows at the height.
func (u *UnitOfWork) DeleteBlocksAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	query := `DELETE FROM block WHERE blockchain_id = $1 AND number = $2`
	if _, err := u.tx.Exec(ctx, query, blockchainID, int64(number)); err != nil {
		return fmt.Errorf("failed to delete blocks at height: %w", err)
	}
	return nil
}

// InsertOmmer records an uncle hash against its nibling block hash.
func (u *UnitOfWork) InsertOmmer(ctx context.Context, blockchainID, ommerHash, niblingHash string) error {
	query := `
		INSERT INTO ommer (blockchain_id, hash, nibling_block_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (blockchain_id, hash, nibling_block_hash) DO NOTHING
	`
	if _, err := u.tx.Exec(ctx, query, blockchainID, ommerHash, niblingHash); err != nil {
		return fmt.Errorf("failed to insert ommer: %w", err)
	}
	return nil
}

// InsertTransaction inserts one transaction row with its receipt-derived
// status and contract address.
func (u *UnitOfWork) InsertTransaction(ctx context.Context, blockHash string, tx *domain.Transaction, receipt *domain.Receipt) error {
	query := `
		INSERT INTO transaction (
			block_hash, hash, nonce, transaction_index, from_address,
			to_address, value, gas_price, gas, input,
			status, contract_address, v, r, s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (block_hash, hash) DO NOTHING
	`

	tag, err := u.tx.Exec(ctx, query,
		blockHash, tx.Hash, int64(tx.Nonce), tx.Index, tx.From,
		nullString(tx.To), tx.Value, tx.GasPrice, int64(tx.Gas), tx.Input,
		nullString(receipt.Status), nullString(receipt.ContractAddress), tx.V, tx.R, tx.S,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNoRowsAffected
	}
	return nil
}

// DeleteLogsByTransactionHash clears logs for one transaction hash. Covers
// transactions being reinserted after a stale-height rewrite.
func (u *UnitOfWork) DeleteLogsByTransactionHash(ctx context.Context, txHash string) error {
	query := `DELETE FROM log WHERE transaction_hash = $1`
	if _, err := u.tx.Exec(ctx, query, txHash); err != nil {
		return fmt.Errorf("failed to delete logs by transaction hash: %w", err)
	}
	return nil
}

// InsertLog stores one log row with the topic vector normalized to four
// nullable slots and returns the assigned log id.
func (u *UnitOfWork) InsertLog(ctx context.Context, lg *domain.Log) (int64, error) {
	query := `
		INSERT INTO log (
			transaction_hash, block_number, log_index, address, data,
			topic_0, topic_1, topic_2, topic_3
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (transaction_hash, log_index) DO NOTHING
		RETURNING log_id
	`

	var logID int64
	err := u.tx.QueryRow(ctx, query,
		lg.TransactionHash, int64(lg.BlockNumber), int64(lg.LogIndex), lg.Address, lg.Data,
		nullString(lg.Topic(0)), nullString(lg.Topic(1)), nullString(lg.Topic(2)), nullString(lg.Topic(3)),
	).Scan(&logID)
	if err == pgx.ErrNoRows {
		return 0, storage.ErrNoRowsAffected
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert log: %w", err)
	}
	return logID, nil
}

// InsertLogEvent writes one decoded event row.
func (u *UnitOfWork) InsertLogEvent(ctx context.Context, ev *domain.LogEvent) error {
	args, err := json.Marshal(ev.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal event args: %w", err)
	}

	query := `
		INSERT INTO log_event (log_id, name, contract_address, args)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (log_id, name) DO NOTHING
	`
	if _, err := u.tx.Exec(ctx, query, ev.LogID, ev.Name, ev.ContractAddress, args); err != nil {
		return fmt.Errorf("failed to insert log event: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
