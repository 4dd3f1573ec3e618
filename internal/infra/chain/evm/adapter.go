package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	logger "log/slog"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
)

// Caller is the JSON-RPC surface the adapter consumes, satisfied by
// rpc.Client. Cycle and Version are passed through so the monitor can
// fail the node over without knowing about providers.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (any, error)
	Cycle(observed uint64) uint64
	Version() uint64
}

// Adapter translates eth_* JSON-RPC responses into domain types.
type Adapter struct {
	client Caller
	log    logger.Logger
}

// NewAdapter creates an EVM node adapter over a failover caller.
func NewAdapter(client Caller) *Adapter {
	return &Adapter{
		client: client,
		log:    *logger.Default(),
	}
}

// LatestNumber returns the node's current head height.
func (a *Adapter) LatestNumber(ctx context.Context) (uint64, error) {
	result, err := a.client.Call(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}

	blockHex, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("invalid block number response")
	}

	return parseHexString(blockHex)
}

// BlockByNumber fetches a block with full transaction objects. Returns
// (nil, nil) when the node has no block at that height yet.
func (a *Adapter) BlockByNumber(ctx context.Context, number uint64) (*domain.Block, error) {
	blockHex := fmt.Sprintf("0x%x", number)
	result, err := a.client.Call(ctx, "eth_getBlockByNumber", []any{blockHex, true})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	rawBlock, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid block format")
	}

	return a.parseBlock(rawBlock)
}

// TransactionReceipt fetches a receipt. Returns (nil, nil) when the node
// has not produced one yet.
func (a *Adapter) TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	result, err := a.client.Call(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	raw, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid receipt format")
	}

	return parseReceipt(raw), nil
}

// Cycle rotates the underlying endpoint if observed is still current.
func (a *Adapter) Cycle(observed uint64) uint64 {
	return a.client.Cycle(observed)
}

// Version returns the failover token of the underlying client.
func (a *Adapter) Version() uint64 {
	return a.client.Version()
}

func parseHexToBigInt(hexStr string) (*big.Int, error) {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(hexStr, "0x"), 16); !ok {
		return nil, fmt.Errorf("invalid hex: %s", hexStr)
	}
	return n, nil
}

func parseHexString(hexStr string) (uint64, error) {
	n, err := parseHexToBigInt(hexStr)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

func hexToUint64(hexStr string) uint64 {
	if hexStr == "" || hexStr == "0x" {
		return 0
	}
	n, err := parseHexString(hexStr)
	if err != nil {
		return 0
	}
	return n
}

func hexToDecimal(hexStr string) string {
	if hexStr == "" || hexStr == "0x" {
		return "0"
	}
	n, err := parseHexToBigInt(hexStr)
	if err != nil {
		return "0"
	}
	return n.String()
}

func getString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
