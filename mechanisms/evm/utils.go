package evm

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	agentpay "github.com/x402-foundation/agentpay"
)

// GetNetworkConfig returns the configuration for a network
func GetNetworkConfig(network agentpay.Network) (NetworkConfig, error) {
	config, ok := NetworkConfigs[network]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unsupported network: %s", network)
	}
	return config, nil
}

// IsValidAddress checks if a string is a valid 0x-prefixed Ethereum address
func IsValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// ParseAddress converts address into a common.Address or reports an
// invalid_address error
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !IsValidAddress(address) {
		return common.Address{}, agentpay.NewError(agentpay.ErrCodeInvalidAddress,
			fmt.Sprintf("invalid EVM address %q", address),
			map[string]interface{}{"address": address})
	}
	return common.HexToAddress(address), nil
}

// IsValidTxHash checks if a string is a 0x-prefixed 32-byte hex hash
func IsValidTxHash(hash string) bool {
	if !strings.HasPrefix(hash, "0x") || len(hash) != 66 {
		return false
	}
	for _, c := range hash[2:] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ExplorerTxURL returns the block explorer page for txHash
func (c NetworkConfig) ExplorerTxURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", c.ExplorerURL, txHash)
}

// AddressTopic left-pads an address into an indexed event topic
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// transferLog is a decoded ERC-20 Transfer event
type transferLog struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// decodeTransferLog decodes an ERC-20 Transfer event. ok is false for any
// other log shape.
func decodeTransferLog(log types.Log) (transferLog, bool) {
	if len(log.Topics) != 3 || log.Topics[0] != TransferEventTopic {
		return transferLog{}, false
	}
	return transferLog{
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: new(big.Int).SetBytes(log.Data),
	}, true
}

// scanWindow returns the number of blocks covering elapsed, rounded up,
// plus ScanBlockBuffer and capped at MaxScanBlocks
func scanWindow(elapsed time.Duration) uint64 {
	if elapsed < 0 {
		elapsed = 0
	}
	blocks := int64(elapsed / ApproxBlockTime)
	if elapsed%ApproxBlockTime != 0 {
		blocks++
	}
	blocks += ScanBlockBuffer
	if blocks > MaxScanBlocks {
		blocks = MaxScanBlocks
	}
	return uint64(blocks)
}
