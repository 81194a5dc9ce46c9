package svm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/logger"
)

// ProviderConfig configures a Solana provider
type ProviderConfig struct {
	// Network selects mainnet-beta or devnet
	Network agentpay.Network

	// Client is the JSON-RPC client, typically *rpc.Client
	Client RPCClient

	// Signer is optional; without it the provider runs read-only
	Signer TransactionSigner

	Logger logger.Logger
}

// Provider implements agentpay.ChainProvider for Solana by reading the
// USDC associated token account of an owner and its token balance deltas
type Provider struct {
	config NetworkConfig
	mint   solana.PublicKey
	client RPCClient
	signer TransactionSigner
	log    logger.Logger
}

// NewProvider creates a Solana provider
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("svm provider: client is required")
	}
	network := cfg.Network
	if network == "" {
		network = agentpay.NetworkTestnet
	}
	config, err := GetNetworkConfig(network)
	if err != nil {
		return nil, fmt.Errorf("svm provider: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(config.DefaultAsset.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC mint: %w", err)
	}

	return &Provider{
		config: config,
		mint:   mint,
		client: cfg.Client,
		signer: cfg.Signer,
		log:    logger.OrNoop(cfg.Logger),
	}, nil
}

// Chain returns agentpay.ChainSolana
func (p *Provider) Chain() agentpay.Chain {
	return agentpay.ChainSolana
}

// NetworkConfig returns the network this provider is bound to
func (p *Provider) NetworkConfig() NetworkConfig {
	return p.config
}

// WalletAddress returns the base58 signer public key, or "" when read-only
func (p *Provider) WalletAddress() string {
	if p.signer == nil {
		return ""
	}
	return p.signer.PublicKey().String()
}

// GetBalance reads the owner's USDC associated token account.
// A missing account is a zero balance.
func (p *Provider) GetBalance(ctx context.Context, address string) (*agentpay.Balance, error) {
	owner, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	ata, _, err := solana.FindAssociatedTokenAddress(owner, p.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive ATA: %w", err)
	}

	res, err := p.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil || res == nil || res.Value == nil {
		p.log.Debug("token account balance unavailable", map[string]any{
			"owner": owner.String(),
			"ata":   ata.String(),
			"error": err,
		})
		return agentpay.NewBalance(agentpay.ChainSolana, owner.String(), nil), nil
	}

	return agentpay.NewBalance(agentpay.ChainSolana, owner.String(), uiAmountRaw(res.Value)), nil
}

// SendTransfer submits a TransferChecked of USDC to the recipient's
// associated token account, creating that account when it does not exist
func (p *Provider) SendTransfer(ctx context.Context, to string, amount string) (*agentpay.TransferResult, error) {
	if p.signer == nil {
		return nil, agentpay.ErrNoWalletConfigured(agentpay.ChainSolana)
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
	if !value.IsUint64() {
		return nil, agentpay.ErrInvalidAmount(amount, "exceeds the token amount range")
	}

	payer := p.signer.PublicKey()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(payer, p.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source ATA: %w", err)
	}
	destinationATA, _, err := solana.FindAssociatedTokenAddress(recipient, p.mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination ATA: %w", err)
	}

	decimals := p.mintDecimals(ctx)

	instructions := make([]solana.Instruction, 0, 4)

	cuLimit, err := computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(DefaultComputeUnitLimit).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build compute limit instruction: %w", err)
	}
	cuPrice, err := computebudget.NewSetComputeUnitPriceInstructionBuilder().
		SetMicroLamports(DefaultComputeUnitPrice).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build compute price instruction: %w", err)
	}
	instructions = append(instructions, cuLimit, cuPrice)

	exists, err := p.accountExists(ctx, destinationATA)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to look up destination token account", err)
	}
	if !exists {
		createIx, err := associatedtokenaccount.NewCreateInstruction(payer, recipient, p.mint).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("failed to build create ATA instruction: %w", err)
		}
		instructions = append(instructions, createIx)
	}

	transferIx, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(value.Uint64()).
		SetDecimals(decimals).
		SetSourceAccount(sourceATA).
		SetMintAccount(p.mint).
		SetDestinationAccount(destinationATA).
		SetOwnerAccount(payer).
		ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	instructions = append(instructions, transferIx)

	latestBlockhash, err := p.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to get latest blockhash", err)
	}

	builder := solana.NewTransactionBuilder().
		SetRecentBlockHash(latestBlockhash.Value.Blockhash).
		SetFeePayer(payer)
	for _, ix := range instructions {
		builder = builder.AddInstruction(ix)
	}
	tx, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	if err := p.signer.SignTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := p.client.SendTransaction(ctx, tx)
	if err != nil {
		return nil, agentpay.WrapError(agentpay.ErrCodeTransientLedgerFailure, "failed to send transaction", err)
	}

	return &agentpay.TransferResult{
		Chain:       agentpay.ChainSolana,
		TxHash:      sig.String(),
		ExplorerURL: p.config.ExplorerTxURL(sig.String()),
		From:        payer.String(),
		To:          recipient.String(),
		Amount:      strings.TrimSpace(amount),
	}, nil
}

// GetTransactionStatus fetches a transaction by signature.
// Unknown signatures and lookup failures yield an unconfirmed status.
func (p *Provider) GetTransactionStatus(ctx context.Context, txHash string) (*agentpay.TransactionStatus, error) {
	status := &agentpay.TransactionStatus{
		Chain:  agentpay.ChainSolana,
		TxHash: txHash,
	}

	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return status, nil
	}

	result, err := p.fetchTransaction(ctx, sig)
	if err != nil || result == nil || result.Meta == nil {
		p.log.Debug("transaction not available", map[string]any{
			"tx_hash": txHash,
			"error":   err,
		})
		return status, nil
	}

	status.Confirmed = result.Meta.Err == nil
	slot := result.Slot
	status.BlockOrSlot = &slot
	if result.BlockTime != nil {
		ts := time.Unix(int64(*result.BlockTime), 0).UTC()
		status.Timestamp = &ts
	}

	deltas := tokenDeltas(result.Meta, p.mint)
	if from := largestDecrease(deltas); from != UnknownSender {
		status.From = from
	}
	if gain, ok := largestIncrease(deltas); ok {
		status.To = gain.Owner
		status.Amount = agentpay.FormatAmount(gain.Change)
	}

	return status, nil
}

// GetRecentInboundTransfers inspects the most recent signatures of the
// owner's USDC token account and reports those that increased its balance
func (p *Provider) GetRecentInboundTransfers(ctx context.Context, address string, since time.Time) []agentpay.TransferObservation {
	owner, err := ParseAddress(address)
	if err != nil {
		p.log.Warn("skipping scan for invalid address", map[string]any{"address": address})
		return nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, p.mint)
	if err != nil {
		p.log.Warn("failed to derive ATA", map[string]any{"owner": owner.String(), "error": err})
		return nil
	}

	limit := ScanSignatureLimit
	signatures, err := p.client.GetSignaturesForAddressWithOpts(ctx, ata, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		p.log.Warn("failed to get signatures", map[string]any{
			"chain": string(agentpay.ChainSolana),
			"ata":   ata.String(),
			"error": err,
		})
		return nil
	}

	observations := make([]agentpay.TransferObservation, 0)
	for _, s := range signatures {
		if s == nil || s.Err != nil {
			continue
		}
		if s.BlockTime != nil && time.Unix(int64(*s.BlockTime), 0).Before(since) {
			continue
		}

		obs, ok := p.inboundObservation(ctx, s.Signature, owner, ata, since)
		if ok {
			observations = append(observations, obs)
		}
	}

	p.log.Debug("scanned token account signatures", map[string]any{
		"chain":        string(agentpay.ChainSolana),
		"ata":          ata.String(),
		"signatures":   len(signatures),
		"observations": len(observations),
	})
	return observations
}

// inboundObservation fetches one transaction and reports the increase of
// ata's USDC balance, if any
func (p *Provider) inboundObservation(ctx context.Context, sig solana.Signature, owner, ata solana.PublicKey, since time.Time) (agentpay.TransferObservation, bool) {
	result, err := p.fetchTransaction(ctx, sig)
	if err != nil || result == nil || result.Meta == nil {
		p.log.Debug("skipping transaction", map[string]any{
			"signature": sig.String(),
			"error":     err,
		})
		return agentpay.TransferObservation{}, false
	}
	if result.Meta.Err != nil || result.BlockTime == nil {
		return agentpay.TransferObservation{}, false
	}
	ts := time.Unix(int64(*result.BlockTime), 0).UTC()
	if ts.Before(since) {
		return agentpay.TransferObservation{}, false
	}

	deltas := tokenDeltas(result.Meta, p.mint)
	received, ok := p.ataDelta(result, deltas, owner, ata)
	if !ok || received.Sign() <= 0 {
		return agentpay.TransferObservation{}, false
	}

	return agentpay.TransferObservation{
		From:      largestDecrease(deltas),
		Amount:    agentpay.FormatAmount(received),
		Timestamp: ts,
		TxHash:    sig.String(),
	}, true
}

// ataDelta locates ata among the transaction's accounts and returns its
// balance change. When the transaction cannot be decoded the owner recorded
// in the token balances identifies the account instead.
func (p *Provider) ataDelta(result *rpc.GetTransactionResult, deltas []tokenDelta, owner, ata solana.PublicKey) (*big.Int, bool) {
	keys, err := accountKeys(result)
	if err == nil {
		for i, key := range keys {
			if !key.Equals(ata) {
				continue
			}
			for _, d := range deltas {
				if int(d.AccountIndex) == i {
					return d.Change, true
				}
			}
			return nil, false
		}
		return nil, false
	}

	for _, d := range deltas {
		if d.Owner == owner.String() {
			return d.Change, true
		}
	}
	return nil, false
}

func (p *Provider) fetchTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := MaxSupportedTransactionVersion
	return p.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
}

// mintDecimals decodes the mint account, falling back to DefaultDecimals
func (p *Provider) mintDecimals(ctx context.Context) uint8 {
	mintAccount, err := p.client.GetAccountInfo(ctx, p.mint)
	if err != nil || mintAccount == nil || mintAccount.Value == nil || mintAccount.Value.Data == nil {
		p.log.Debug("mint account unavailable, using default decimals", map[string]any{"error": err})
		return DefaultDecimals
	}

	var mintData token.Mint
	if err := bin.NewBinDecoder(mintAccount.Value.Data.GetBinary()).Decode(&mintData); err != nil {
		p.log.Debug("failed to decode mint data, using default decimals", map[string]any{"error": err})
		return DefaultDecimals
	}
	return mintData.Decimals
}

func (p *Provider) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := p.client.GetAccountInfo(ctx, account)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info != nil && info.Value != nil, nil
}

var _ agentpay.ChainProvider = (*Provider)(nil)
