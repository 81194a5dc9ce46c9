package svm

import (
	agentpay "github.com/x402-foundation/agentpay"
)

const (
	// Default token decimals for USDC
	DefaultDecimals = 6

	// ScanSignatureLimit is how many recent signatures of the token account a
	// scan inspects
	ScanSignatureLimit = 25

	// Compute budget for a transfer, including an optional ATA creation
	DefaultComputeUnitLimit uint32 = 60000

	// DefaultComputeUnitPrice is the priority fee in microlamports per unit
	DefaultComputeUnitPrice uint64 = 1

	// MaxSupportedTransactionVersion accepts legacy and v0 transactions
	MaxSupportedTransactionVersion uint64 = 0

	// UnknownSender is reported when no token account of the transfer
	// decreased
	UnknownSender = "unknown"

	// ExplorerBaseURL is the Solana explorer
	ExplorerBaseURL = "https://explorer.solana.com"
)

var (
	// Network configurations
	NetworkConfigs = map[agentpay.Network]NetworkConfig{
		// Solana Mainnet
		agentpay.NetworkMainnet: {
			Name:   "mainnet-beta",
			RPCURL: "https://api.mainnet-beta.solana.com",
			DefaultAsset: AssetInfo{
				Address:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC mainnet
				Symbol:   "USDC",
				Decimals: DefaultDecimals,
			},
		},
		// Solana Devnet
		agentpay.NetworkTestnet: {
			Name:         "devnet",
			RPCURL:       "https://api.devnet.solana.com",
			ExplorerArgs: "?cluster=devnet",
			DefaultAsset: AssetInfo{
				Address:  "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", // USDC devnet
				Symbol:   "USDC",
				Decimals: DefaultDecimals,
			},
		},
	}
)
