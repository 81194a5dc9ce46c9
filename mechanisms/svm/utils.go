package svm

import (
	"fmt"
	"math/big"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

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

// ExplorerTxURL returns the explorer page for a transaction signature
func (c NetworkConfig) ExplorerTxURL(signature string) string {
	return fmt.Sprintf("%s/tx/%s%s", ExplorerBaseURL, signature, c.ExplorerArgs)
}

// ParseAddress converts a base58 address into a public key or reports
// an invalid_address error
func ParseAddress(address string) (solana.PublicKey, error) {
	address = strings.TrimSpace(address)
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, agentpay.WrapError(agentpay.ErrCodeInvalidAddress,
			fmt.Sprintf("invalid Solana address %q", address), err)
	}
	return pk, nil
}

// tokenDelta is the net change of one token account within a transaction
type tokenDelta struct {
	AccountIndex uint16
	Owner        string
	Change       *big.Int
}

// tokenDeltas computes post - pre for every token account of mint touched by
// the transaction. A missing pre entry counts as zero.
func tokenDeltas(meta *rpc.TransactionMeta, mint solana.PublicKey) []tokenDelta {
	if meta == nil {
		return nil
	}

	pre := make(map[uint16]*big.Int)
	owners := make(map[uint16]string)
	for _, b := range meta.PreTokenBalances {
		if !b.Mint.Equals(mint) {
			continue
		}
		pre[b.AccountIndex] = uiAmountRaw(b.UiTokenAmount)
		if b.Owner != nil {
			owners[b.AccountIndex] = b.Owner.String()
		}
	}

	deltas := make([]tokenDelta, 0, len(meta.PostTokenBalances))
	seen := make(map[uint16]bool)
	for _, b := range meta.PostTokenBalances {
		if !b.Mint.Equals(mint) {
			continue
		}
		seen[b.AccountIndex] = true
		before, ok := pre[b.AccountIndex]
		if !ok {
			before = new(big.Int)
		}
		owner := owners[b.AccountIndex]
		if b.Owner != nil {
			owner = b.Owner.String()
		}
		deltas = append(deltas, tokenDelta{
			AccountIndex: b.AccountIndex,
			Owner:        owner,
			Change:       new(big.Int).Sub(uiAmountRaw(b.UiTokenAmount), before),
		})
	}

	// Accounts closed by the transaction only appear in the pre balances
	for _, b := range meta.PreTokenBalances {
		if !b.Mint.Equals(mint) || seen[b.AccountIndex] {
			continue
		}
		deltas = append(deltas, tokenDelta{
			AccountIndex: b.AccountIndex,
			Owner:        owners[b.AccountIndex],
			Change:       new(big.Int).Neg(pre[b.AccountIndex]),
		})
	}
	return deltas
}

// largestDecrease returns the owner whose balance fell the most, or
// UnknownSender
func largestDecrease(deltas []tokenDelta) string {
	sender := UnknownSender
	var lowest *big.Int
	for _, d := range deltas {
		if d.Change.Sign() >= 0 || d.Owner == "" {
			continue
		}
		if lowest == nil || d.Change.Cmp(lowest) < 0 {
			lowest = d.Change
			sender = d.Owner
		}
	}
	return sender
}

// largestIncrease returns the delta with the biggest gain
func largestIncrease(deltas []tokenDelta) (tokenDelta, bool) {
	var best tokenDelta
	found := false
	for _, d := range deltas {
		if d.Change.Sign() <= 0 {
			continue
		}
		if !found || d.Change.Cmp(best.Change) > 0 {
			best = d
			found = true
		}
	}
	return best, found
}

// accountKeys lists every account of the transaction in index order, static
// keys followed by writable and read-only lookup table addresses
func accountKeys(result *rpc.GetTransactionResult) (solana.PublicKeySlice, error) {
	if result == nil || result.Transaction == nil {
		return nil, fmt.Errorf("transaction envelope missing")
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	keys := append(solana.PublicKeySlice{}, tx.Message.AccountKeys...)
	if result.Meta != nil {
		keys = append(keys, result.Meta.LoadedAddresses.Writable...)
		keys = append(keys, result.Meta.LoadedAddresses.ReadOnly...)
	}
	return keys, nil
}

func uiAmountRaw(amount *rpc.UiTokenAmount) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(amount.Amount, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
