package evm

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/logger"
)

// ProviderConfig configures an EVM provider
type ProviderConfig struct {
	// Network selects Base mainnet or Base Sepolia
	Network agentpay.Network

	// Client is the JSON-RPC client, typically *ethclient.Client
	Client ChainReader

	// Signer is optional; without it the provider runs read-only
	Signer TransactionSigner

	Logger logger.Logger

	// Now overrides the clock used to size scans
	Now func() time.Time
}

// Provider implements agentpay.ChainProvider for Base by reading ERC-20
// balances and Transfer logs of the USDC contract
type Provider struct {
	config NetworkConfig
	token  common.Address
	client ChainReader
	signer TransactionSigner
	erc20  abi.ABI
	log    logger.Logger
	now    func() time.Time
}

// NewProvider creates an EVM provider
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("evm provider: client is required")
	}
	network := cfg.Network
	if network == "" {
		network = agentpay.NetworkTestnet
	}
	config, err := GetNetworkConfig(network)
	if err != nil {
		return nil, fmt.Errorf("evm provider: %w", err)
	}
	parsed, err := abi.JSON(bytes.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Provider{
		config: config,
		token:  common.HexToAddress(config.DefaultAsset.Address),
		client: cfg.Client,
		signer: cfg.Signer,
		erc20:  parsed,
		log:    logger.OrNoop(cfg.Logger),
		now:    now,
	}, nil
}

// Chain returns agentpay.ChainBase
func (p *Provider) Chain() agentpay.Chain {
	return agentpay.ChainBase
}

// NetworkConfig returns the network this provider is bound to
func (p *Provider) NetworkConfig() NetworkConfig {
	return p.config
}

// WalletAddress returns the checksummed signer address, or "" when read-only
func (p *Provider) WalletAddress() string {
	if p.signer == nil {
		return ""
	}
	return p.signer.Address().Hex()
}

// GetBalance reads balanceOf(address) on the USDC contract
func (p *Provider) GetBalance(ctx context.Context, address string) (*agentpay.Balance, error) {
	owner, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	data, err := p.erc20.Pack(FunctionBalanceOf, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &p.token, Data: data}, nil)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "balanceOf call failed", err)
	}

	values, err := p.erc20.Unpack(FunctionBalanceOf, out)
	if err != nil || len(values) == 0 {
		// An empty return means no contract code answered the call
		if len(out) == 0 {
			return agentpay.NewBalance(agentpay.ChainBase, owner.Hex(), nil), nil
		}
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to decode balanceOf result", err)
	}

	raw, ok := values[0].(*big.Int)
	if !ok {
		return nil, agentpay.NewError(agentpay.ErrCodeTransientLedgerFailure,
			fmt.Sprintf("unexpected balanceOf result type %T", values[0]), nil)
	}
	return agentpay.NewBalance(agentpay.ChainBase, owner.Hex(), raw), nil
}

// SendTransfer submits a legacy ERC-20 transfer transaction.
// The receipt is not awaited.
func (p *Provider) SendTransfer(ctx context.Context, to string, amount string) (*agentpay.TransferResult, error) {
	if p.signer == nil {
		return nil, agentpay.ErrNoWalletConfigured(agentpay.ChainBase)
	}

	recipient, err := ParseAddress(to)
	if err != nil {
		return nil, err
	}
	value, err := agentpay.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, agentpay.ErrInvalidAmount(amount, "must be greater than zero")
	}

	data, err := p.erc20.Pack(FunctionTransfer, recipient, value)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer: %w", err)
	}

	from := p.signer.Address()

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to get chain id", err)
	}
	if chainID.Cmp(p.config.ChainID) != 0 {
		return nil, agentpay.NewError(agentpay.ErrCodeInvalidRequest,
			fmt.Sprintf("rpc endpoint serves chain %s, expected %s (%s)", chainID, p.config.ChainID, p.config.Name), nil)
	}

	nonce, err := p.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to get nonce", err)
	}

	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to get gas price", err)
	}

	gasLimit, err := p.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &p.token, Data: data})
	if err != nil || gasLimit == 0 {
		p.log.Debug("gas estimation failed, using default limit", map[string]any{
			"chain":     string(agentpay.ChainBase),
			"gas_limit": DefaultTransferGasLimit,
			"error":     err,
		})
		gasLimit = DefaultTransferGasLimit
	}

	tx := types.NewTransaction(nonce, p.token, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := p.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := p.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to send transaction", err)
	}

	hash := signedTx.Hash().Hex()
	return &agentpay.TransferResult{
		Chain:       agentpay.ChainBase,
		TxHash:      hash,
		ExplorerURL: p.config.ExplorerTxURL(hash),
		From:        from.Hex(),
		To:          recipient.Hex(),
		Amount:      strings.TrimSpace(amount),
	}, nil
}

// GetTransactionStatus looks up the receipt of txHash.
// Unknown hashes and lookup failures yield an unconfirmed status.
func (p *Provider) GetTransactionStatus(ctx context.Context, txHash string) (*agentpay.TransactionStatus, error) {
	status := &agentpay.TransactionStatus{
		Chain:  agentpay.ChainBase,
		TxHash: txHash,
	}
	if !IsValidTxHash(txHash) {
		return status, nil
	}

	receipt, err := p.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil || receipt == nil {
		p.log.Debug("transaction receipt not available", map[string]any{
			"tx_hash": txHash,
			"error":   err,
		})
		return status, nil
	}

	status.Confirmed = receipt.Status == types.ReceiptStatusSuccessful
	if receipt.BlockNumber != nil {
		block := receipt.BlockNumber.Uint64()
		status.BlockOrSlot = &block

		if header, err := p.client.HeaderByNumber(ctx, receipt.BlockNumber); err == nil && header != nil {
			ts := time.Unix(int64(header.Time), 0).UTC()
			status.Timestamp = &ts
		}
	}

	for _, l := range receipt.Logs {
		if l == nil || l.Address != p.token {
			continue
		}
		if transfer, ok := decodeTransferLog(*l); ok {
			status.From = transfer.From.Hex()
			status.To = transfer.To.Hex()
			status.Amount = agentpay.FormatAmount(transfer.Value)
			break
		}
	}

	return status, nil
}

// GetRecentInboundTransfers filters USDC Transfer logs addressed to address
// over a block window sized from the time elapsed since since
func (p *Provider) GetRecentInboundTransfers(ctx context.Context, address string, since time.Time) []agentpay.TransferObservation {
	recipient, err := ParseAddress(address)
	if err != nil {
		p.log.Warn("skipping scan for invalid address", map[string]any{"address": address})
		return nil
	}

	latest, err := p.client.BlockNumber(ctx)
	if err != nil {
		p.log.Warn("failed to get latest block", map[string]any{
			"chain": string(agentpay.ChainBase),
			"error": err,
		})
		return nil
	}

	window := scanWindow(p.now().Sub(since))
	var fromBlock uint64
	if latest > window {
		fromBlock = latest - window
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(latest),
		Addresses: []common.Address{p.token},
		Topics: [][]common.Hash{
			{TransferEventTopic},
			nil,
			{AddressTopic(recipient)},
		},
	}

	logs, err := p.client.FilterLogs(ctx, query)
	if err != nil {
		p.log.Warn("failed to filter transfer logs", map[string]any{
			"chain":      string(agentpay.ChainBase),
			"from_block": fromBlock,
			"to_block":   latest,
			"error":      err,
		})
		return nil
	}

	blockTimes := make(map[uint64]time.Time)
	observations := make([]agentpay.TransferObservation, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		transfer, ok := decodeTransferLog(l)
		if !ok || transfer.To != recipient {
			continue
		}

		ts, ok := blockTimes[l.BlockNumber]
		if !ok {
			header, err := p.client.HeaderByNumber(ctx, new(big.Int).SetUint64(l.BlockNumber))
			if err != nil || header == nil {
				p.log.Debug("failed to get block header", map[string]any{
					"block": l.BlockNumber,
					"error": err,
				})
				continue
			}
			ts = time.Unix(int64(header.Time), 0).UTC()
			blockTimes[l.BlockNumber] = ts
		}
		if ts.Before(since) {
			continue
		}

		observations = append(observations, agentpay.TransferObservation{
			From:      transfer.From.Hex(),
			Amount:    agentpay.FormatAmount(transfer.Value),
			Timestamp: ts,
			TxHash:    l.TxHash.Hex(),
		})
	}

	p.log.Debug("scanned transfer logs", map[string]any{
		"chain":        string(agentpay.ChainBase),
		"from_block":   fromBlock,
		"to_block":     latest,
		"logs":         len(logs),
		"observations": len(observations),
	})
	return observations
}

var _ agentpay.ChainProvider = (*Provider)(nil)
