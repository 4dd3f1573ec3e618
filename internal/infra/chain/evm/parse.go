package evm

import (
	"fmt"

	"github.com/BlockadeLabs/evm-cache/internal/core/domain"
)

func (a *Adapter) parseBlock(raw map[string]any) (*domain.Block, error) {
	hash := getString(raw["hash"])
	if hash == "" {
		return nil, fmt.Errorf("block response missing hash")
	}

	block := &domain.Block{
		Number:           hexToUint64(getString(raw["number"])),
		Hash:             hash,
		ParentHash:       getString(raw["parentHash"]),
		Nonce:            getString(raw["nonce"]),
		GasLimit:         hexToUint64(getString(raw["gasLimit"])),
		GasUsed:          hexToUint64(getString(raw["gasUsed"])),
		Timestamp:        hexToUint64(getString(raw["timestamp"])),
		SHA3Uncles:       getString(raw["sha3Uncles"]),
		LogsBloom:        getString(raw["logsBloom"]),
		TransactionsRoot: getString(raw["transactionsRoot"]),
		ReceiptsRoot:     getString(raw["receiptsRoot"]),
		StateRoot:        getString(raw["stateRoot"]),
		MixHash:          getString(raw["mixHash"]),
		Miner:            getString(raw["miner"]),
		Difficulty:       hexToDecimal(getString(raw["difficulty"])),
		ExtraData:        getString(raw["extraData"]),
		Size:             hexToUint64(getString(raw["size"])),
	}

	if rawUncles, ok := raw["uncles"].([]any); ok {
		for _, u := range rawUncles {
			if s := getString(u); s != "" {
				block.Uncles = append(block.Uncles, s)
			}
		}
	}

	rawTxs, _ := raw["transactions"].([]any)
	for i, txRaw := range rawTxs {
		txData, ok := txRaw.(map[string]any)
		if !ok {
			continue
		}

		tx, err := parseTransaction(txData)
		if err != nil {
			a.log.Warn("parse tx failed", "error", err, "index", i)
			continue
		}
		block.Transactions = append(block.Transactions, tx)
	}

	return block, nil
}

func parseTransaction(raw map[string]any) (*domain.Transaction, error) {
	hash := getString(raw["hash"])
	if hash == "" {
		return nil, fmt.Errorf("transaction missing hash")
	}

	return &domain.Transaction{
		Hash:     hash,
		Nonce:    hexToUint64(getString(raw["nonce"])),
		Index:    int(hexToUint64(getString(raw["transactionIndex"]))),
		From:     getString(raw["from"]),
		To:       getString(raw["to"]),
		Value:    hexToDecimal(getString(raw["value"])),
		GasPrice: hexToDecimal(getString(raw["gasPrice"])),
		Gas:      hexToUint64(getString(raw["gas"])),
		Input:    getString(raw["input"]),
		V:        getString(raw["v"]),
		R:        getString(raw["r"]),
		S:        getString(raw["s"]),
	}, nil
}

func parseReceipt(raw map[string]any) *domain.Receipt {
	receipt := &domain.Receipt{
		TransactionHash: getString(raw["transactionHash"]),
		Status:          getString(raw["status"]),
		ContractAddress: getString(raw["contractAddress"]),
		GasUsed:         hexToUint64(getString(raw["gasUsed"])),
	}

	rawLogs, _ := raw["logs"].([]any)
	for _, logRaw := range rawLogs {
		logData, ok := logRaw.(map[string]any)
		if !ok {
			continue
		}

		lg := &domain.Log{
			TransactionHash: getString(logData["transactionHash"]),
			BlockNumber:     hexToUint64(getString(logData["blockNumber"])),
			LogIndex:        hexToUint64(getString(logData["logIndex"])),
			Address:         getString(logData["address"]),
			Data:            getString(logData["data"]),
		}
		if lg.TransactionHash == "" {
			lg.TransactionHash = receipt.TransactionHash
		}

		if topics, ok := logData["topics"].([]any); ok {
			for _, t := range topics {
				if s := getString(t); s != "" {
					lg.Topics = append(lg.Topics, s)
				}
			}
		}

		receipt.Logs = append(receipt.Logs, lg)
	}

	return receipt
}
