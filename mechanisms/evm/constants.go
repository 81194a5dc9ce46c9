package evm

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	agentpay "github.com/x402-foundation/agentpay"
)

const (
	// Default token decimals for USDC
	DefaultDecimals = 6

	// ERC-20 function names
	FunctionBalanceOf = "balanceOf"
	FunctionTransfer  = "transfer"

	// DefaultTransferGasLimit is used when gas estimation fails
	DefaultTransferGasLimit = 100000

	// ApproxBlockTime is the nominal Base block interval used to size scans
	ApproxBlockTime = 2 * time.Second

	// ScanBlockBuffer is added to every scan to cover clock skew
	ScanBlockBuffer = 10

	// MaxScanBlocks bounds the block range of a single scan
	MaxScanBlocks = 5000
)

var (
	// Network chain IDs
	ChainIDBase        = big.NewInt(8453)
	ChainIDBaseSepolia = big.NewInt(84532)

	// TransferEventTopic is keccak256("Transfer(address,address,uint256)")
	TransferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// Network configurations
	NetworkConfigs = map[agentpay.Network]NetworkConfig{
		// Base Mainnet
		agentpay.NetworkMainnet: {
			Name:        "base",
			ChainID:     ChainIDBase,
			RPCURL:      "https://mainnet.base.org",
			ExplorerURL: "https://basescan.org",
			DefaultAsset: AssetInfo{
				Address:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // USDC on Base
				Name:     "USD Coin",
				Decimals: DefaultDecimals,
			},
		},
		// Base Sepolia Testnet
		agentpay.NetworkTestnet: {
			Name:        "base-sepolia",
			ChainID:     ChainIDBaseSepolia,
			RPCURL:      "https://sepolia.base.org",
			ExplorerURL: "https://sepolia.basescan.org",
			DefaultAsset: AssetInfo{
				Address:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e", // USDC on Base Sepolia
				Name:     "USDC",
				Decimals: DefaultDecimals,
			},
		},
	}

	// ERC20ABI covers balanceOf, transfer and the Transfer event
	ERC20ABI = []byte(`[
		{
			"inputs": [
				{"name": "account", "type": "address"}
			],
			"name": "balanceOf",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "transfer",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "from", "type": "address"},
				{"indexed": true, "name": "to", "type": "address"},
				{"indexed": false, "name": "value", "type": "uint256"}
			],
			"name": "Transfer",
			"type": "event"
		}
	]`)
)
