package domain

// Block is a full execution-layer block as returned by eth_getBlockByNumber
// with transaction objects included. Quantities that can exceed uint64
// (difficulty, transaction values) are kept as decimal strings.
type Block struct {
	Number           uint64
	Hash             string
	ParentHash       string
	Nonce            string
	GasLimit         uint64
	GasUsed          uint64
	Timestamp        uint64
	SHA3Uncles       string
	LogsBloom        string
	TransactionsRoot string
	ReceiptsRoot     string
	StateRoot        string
	MixHash          string
	Miner            string
	Difficulty       string
	ExtraData        string
	Size             uint64

	Transactions []*Transaction
	Uncles       []string
}

// BlockRef is the stored-side view of a block used by the reconciler:
// just enough to compare a fetched block against what is already cached.
type BlockRef struct {
	Number           uint64 `db:"number"`
	Hash             string `db:"hash"`
	TransactionCount int    `db:"transaction_count"`
}

// Ommer links an uncle hash to the canonical block that referenced it.
type Ommer struct {
	Hash             string `db:"hash"`
	NiblingBlockHash string `db:"nibling_block_hash"`
}
