package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader is the subset of the Ethereum JSON-RPC API the provider needs.
// *ethclient.Client satisfies it.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TransactionSigner signs outbound transactions on behalf of the wallet
type TransactionSigner interface {
	// Address returns the signer's Ethereum address
	Address() common.Address

	// SignTx signs tx for the given chain id
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// AssetInfo contains information about a token asset
type AssetInfo struct {
	Address  string
	Name     string
	Decimals int
}

// NetworkConfig contains network-specific configuration
type NetworkConfig struct {
	Name         string
	ChainID      *big.Int
	RPCURL       string
	ExplorerURL  string
	DefaultAsset AssetInfo
}
