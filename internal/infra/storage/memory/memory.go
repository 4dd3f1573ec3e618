package memory

import (
	"context"
	"sync"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
	"github.com/BlockadeLabs/evm-cache/internal/infra/storage"
)

// Store is an in-memory implementation of storage.Store. It backs the test
// suite and the no-database mode. Units of work hold the store lock from
// Begin to Commit/Rollback, which serialises concurrent pipelines end to
// end; that satisfies the persistence ordering contract without a session
// pool.
type Store struct {
	mu    sync.Mutex
	state state
}

type state struct {
	blocks    []blockRow
	ommers    []ommerRow
	txs       []txRow
	logs      []logRow
	events    []domain.LogEvent
	nextLogID int64
}

type blockRow struct {
	blockchainID string
	block        domain.Block
	txCount      int
}

type ommerRow struct {
	blockchainID string
	hash         string
	niblingHash  string
}

type txRow struct {
	blockHash       string
	tx              domain.Transaction
	status          string
	contractAddress string
}

type logRow struct {
	id  int64
	log domain.Log
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{state: state{nextLogID: 1}}
}

// LatestNumber returns the highest stored block number for the chain.
func (s *Store) LatestNumber(ctx context.Context, blockchainID string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.latestNumber(blockchainID)
}

// GetByHash returns the stored block row for the hash, or nil when absent.
func (s *Store) GetByHash(ctx context.Context, blockchainID, hash string) (*domain.BlockRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getByHash(blockchainID, hash), nil
}

// TransactionCountAtHeight sums transactions across all block rows at the height.
func (s *Store) TransactionCountAtHeight(ctx context.Context, blockchainID string, number uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.txCountAtHeight(blockchainID, number), nil
}

// Begin locks the store and snapshots state so Rollback can restore it.
func (s *Store) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	s.mu.Lock()
	return &unitOfWork{store: s, snapshot: s.state.clone()}, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// Blocks returns the stored blocks for a chain in insertion order. Test helper.
func (s *Store) Blocks(blockchainID string) []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Block
	for _, row := range s.state.blocks {
		if row.blockchainID == blockchainID {
			out = append(out, row.block)
		}
	}
	return out
}

// TransactionHashes returns stored transaction hashes for a block hash. Test helper.
func (s *Store) TransactionHashes(blockHash string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, row := range s.state.txs {
		if row.blockHash == blockHash {
			out = append(out, row.tx.Hash)
		}
	}
	return out
}

// LogsByTransaction returns stored logs for a transaction hash. Test helper.
func (s *Store) LogsByTransaction(txHash string) []domain.Log {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Log
	for _, row := range s.state.logs {
		if row.log.TransactionHash == txHash {
			out = append(out, row.log)
		}
	}
	return out
}

// Events returns all decoded event rows. Test helper.
func (s *Store) Events() []domain.LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LogEvent(nil), s.state.events...)
}

// Ommers returns ommer rows for a chain. Test helper.
func (s *Store) Ommers(blockchainID string) []domain.Ommer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Ommer
	for _, row := range s.state.ommers {
		if row.blockchainID == blockchainID {
			out = append(out, domain.Ommer{Hash: row.hash, NiblingBlockHash: row.niblingHash})
		}
	}
	return out
}

func (st *state) latestNumber(blockchainID string) (uint64, bool, error) {
	var max uint64
	found := false
	for _, row := range st.blocks {
		if row.blockchainID != blockchainID {
			continue
		}
		if !found || row.block.Number > max {
			max = row.block.Number
		}
		found = true
	}
	return max, found, nil
}

func (st *state) getByHash(blockchainID, hash string) *domain.BlockRef {
	for i := len(st.blocks) - 1; i >= 0; i-- {
		row := st.blocks[i]
		if row.blockchainID == blockchainID && row.block.Hash == hash {
			return &domain.BlockRef{
				Number:           row.block.Number,
				Hash:             row.block.Hash,
				TransactionCount: row.txCount,
			}
		}
	}
	return nil
}

func (st *state) txCountAtHeight(blockchainID string, number uint64) int {
	hashes := make(map[string]struct{})
	for _, row := range st.blocks {
		if row.blockchainID == blockchainID && row.block.Number == number {
			hashes[row.block.Hash] = struct{}{}
		}
	}

	count := 0
	for _, row := range st.txs {
		if _, ok := hashes[row.blockHash]; ok {
			count++
		}
	}
	return count
}

func (st *state) clone() state {
	return state{
		blocks:    append([]blockRow(nil), st.blocks...),
		ommers:    append([]ommerRow(nil), st.ommers...),
		txs:       append([]txRow(nil), st.txs...),
		logs:      append([]logRow(nil), st.logs...),
		events:    append([]domain.LogEvent(nil), st.events...),
		nextLogID: st.nextLogID,
	}
}

type unitOfWork struct {
	store    *Store
	snapshot state
	done     bool
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.state = u.snapshot
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) InsertBlock(ctx context.Context, blockchainID string, b *domain.Block) error {
	st := &u.store.state
	if st.getByHash(blockchainID, b.Hash) != nil {
		return storage.ErrNoRowsAffected
	}

	stored := *b
	stored.Transactions = nil
	stored.Uncles = append([]string(nil), b.Uncles...)

	st.blocks = append(st.blocks, blockRow{
		blockchainID: blockchainID,
		block:        stored,
		txCount:      len(b.Transactions),
	})
	return nil
}

func (u *unitOfWork) DeleteLogsAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	st := &u.store.state
	doomed := st.txHashesAtHeight(blockchainID, number)

	kept := st.logs[:0]
	for _, row := range st.logs {
		if _, ok := doomed[row.log.TransactionHash]; !ok {
			kept = append(kept, row)
		}
	}
	st.logs = kept
	return nil
}

func (u *unitOfWork) DeleteTransactionsAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	st := &u.store.state
	hashes := st.blockHashesAtHeight(blockchainID, number)

	kept := st.txs[:0]
	for _, row := range st.txs {
		if _, ok := hashes[row.blockHash]; !ok {
			kept = append(kept, row)
		}
	}
	st.txs = kept
	return nil
}

func (u *unitOfWork) DeleteOmmersAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	st := &u.store.state
	hashes := st.blockHashesAtHeight(blockchainID, number)

	kept := st.ommers[:0]
	for _, row := range st.ommers {
		if _, ok := hashes[row.niblingHash]; !ok {
			kept = append(kept, row)
		}
	}
	st.ommers = kept
	return nil
}

func (u *unitOfWork) DeleteBlocksAtHeight(ctx context.Context, blockchainID string, number uint64) error {
	st := &u.store.state

	kept := st.blocks[:0]
	for _, row := range st.blocks {
		if row.blockchainID == blockchainID && row.block.Number == number {
			continue
		}
		kept = append(kept, row)
	}
	st.blocks = kept
	return nil
}

func (u *unitOfWork) InsertOmmer(ctx context.Context, blockchainID, ommerHash, niblingHash string) error {
	st := &u.store.state
	for _, row := range st.ommers {
		if row.blockchainID == blockchainID && row.hash == ommerHash && row.niblingHash == niblingHash {
			return nil
		}
	}
	st.ommers = append(st.ommers, ommerRow{blockchainID: blockchainID, hash: ommerHash, niblingHash: niblingHash})
	return nil
}

func (u *unitOfWork) InsertTransaction(ctx context.Context, blockHash string, tx *domain.Transaction, receipt *domain.Receipt) error {
	st := &u.store.state
	for _, row := range st.txs {
		if row.blockHash == blockHash && row.tx.Hash == tx.Hash {
			return storage.ErrNoRowsAffected
		}
	}
	st.txs = append(st.txs, txRow{
		blockHash:       blockHash,
		tx:              *tx,
		status:          receipt.Status,
		contractAddress: receipt.ContractAddress,
	})
	return nil
}

func (u *unitOfWork) DeleteLogsByTransactionHash(ctx context.Context, txHash string) error {
	st := &u.store.state

	kept := st.logs[:0]
	for _, row := range st.logs {
		if row.log.TransactionHash != txHash {
			kept = append(kept, row)
		}
	}
	st.logs = kept
	return nil
}

func (u *unitOfWork) InsertLog(ctx context.Context, lg *domain.Log) (int64, error) {
	st := &u.store.state
	for _, row := range st.logs {
		if row.log.TransactionHash == lg.TransactionHash && row.log.LogIndex == lg.LogIndex {
			return 0, storage.ErrNoRowsAffected
		}
	}

	id := st.nextLogID
	st.nextLogID++

	stored := *lg
	stored.Topics = append([]string(nil), lg.Topics...)
	st.logs = append(st.logs, logRow{id: id, log: stored})
	return id, nil
}

func (u *unitOfWork) InsertLogEvent(ctx context.Context, ev *domain.LogEvent) error {
	st := &u.store.state
	for _, row := range st.events {
		if row.LogID == ev.LogID && row.Name == ev.Name {
			return nil
		}
	}
	st.events = append(st.events, *ev)
	return nil
}

func (st *state) blockHashesAtHeight(blockchainID string, number uint64) map[string]struct{} {
	hashes := make(map[string]struct{})
	for _, row := range st.blocks {
		if row.blockchainID == blockchainID && row.block.Number == number {
			hashes[row.block.Hash] = struct{}{}
		}
	}
	return hashes
}

func (st *state) txHashesAtHeight(blockchainID string, number uint64) map[string]struct{} {
	blockHashes := st.blockHashesAtHeight(blockchainID, number)
	txHashes := make(map[string]struct{})
	for _, row := range st.txs {
		if _, ok := blockHashes[row.blockHash]; ok {
			txHashes[row.tx.Hash] = struct{}{}
		}
	}
	return txHashes
}
