package domain

// Transaction carries the per-transaction fields present on the block
// response. Receipt-derived fields (status, contract address) are attached
// at persist time from the matching Receipt.
type Transaction struct {
	Hash     string
	Nonce    uint64
	Index    int
	From     string
	To       string
	Value    string
	GasPrice string
	Gas      uint64
	Input    string
	V        string
	R        string
	S        string
}

// Receipt is the subset of eth_getTransactionReceipt the cache stores.
// A nil Receipt for a known transaction means the node has not produced
// one yet; the transaction is skipped and healed on a later review pass.
type Receipt struct {
	TransactionHash string
	Status          string
	ContractAddress string
	GasUsed         uint64
	Logs            []*Log
}
