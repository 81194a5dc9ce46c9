package agentpay

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Chain identifies one of the supported ledgers
type Chain string

const (
	// ChainBase is the Base EVM chain
	ChainBase Chain = "base"
	// ChainSolana is the Solana chain
	ChainSolana Chain = "solana"
)

// SupportedChains lists every chain a provider can be registered for
var SupportedChains = []Chain{ChainBase, ChainSolana}

// ParseChain converts a user supplied chain name into a Chain
func ParseChain(s string) (Chain, error) {
	c := Chain(strings.ToLower(strings.TrimSpace(s)))
	for _, supported := range SupportedChains {
		if c == supported {
			return c, nil
		}
	}
	return "", ErrChainNotConfigured(Chain(s))
}

func (c Chain) String() string {
	return string(c)
}

// Network selects mainnet or testnet contract addresses and endpoints
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// ParseNetwork converts a user supplied network name into a Network
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkMainnet:
		return NetworkMainnet, nil
	case NetworkTestnet, "":
		return NetworkTestnet, nil
	default:
		return "", fmt.Errorf("unknown network %q (expected mainnet or testnet)", s)
	}
}

// PaymentStatus is the lifecycle state of a payment request
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusConfirmed PaymentStatus = "confirmed"
	StatusExpired   PaymentStatus = "expired"
)

// ParsePaymentStatus converts a user supplied status filter into a PaymentStatus
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusExpired:
		return StatusExpired, nil
	default:
		return "", NewError(ErrCodeInvalidRequest, fmt.Sprintf("unknown payment status %q", s), nil)
	}
}

// IsTerminal reports whether no further transitions can happen from s
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusExpired
}

// PaymentRequest is one outstanding ask for funds.
// Amount is kept exactly as the caller supplied it.
type PaymentRequest struct {
	ID              string        `json:"id"`
	Chain           Chain         `json:"chain"`
	Recipient       string        `json:"recipient"`
	Amount          string        `json:"amount"`
	Memo            string        `json:"memo"`
	Status          PaymentStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
	ConfirmedTxHash string        `json:"confirmed_tx_hash,omitempty"`
	ConfirmedAt     *time.Time    `json:"confirmed_at,omitempty"`
}

// TransferObservation is a single inbound transfer found by a provider scan
type TransferObservation struct {
	From      string    `json:"from"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	TxHash    string    `json:"tx_hash"`
}

// Balance is the stablecoin holding of an address
type Balance struct {
	Address string `json:"address"`
	Chain   Chain  `json:"chain"`
	Token   string `json:"token"`
	Balance string `json:"balance"`
	Raw     string `json:"raw_balance"`
}

// NewBalance builds a Balance from a fixed-point raw amount.
// A nil or zero raw amount renders as "0".
func NewBalance(chain Chain, address string, raw *big.Int) *Balance {
	b := &Balance{
		Address: address,
		Chain:   chain,
		Token:   TokenSymbol,
		Balance: "0",
		Raw:     "0",
	}
	if raw != nil && raw.Sign() > 0 {
		b.Balance = FormatAmount(raw)
		b.Raw = raw.String()
	}
	return b
}

// TransferResult describes a submitted outbound transfer
type TransferResult struct {
	Chain       Chain  `json:"chain"`
	TxHash      string `json:"tx_hash"`
	ExplorerURL string `json:"explorer_url"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
}

// TransactionStatus is a best-effort view of a transaction.
// Optional fields are nil/empty when the ledger did not report them.
type TransactionStatus struct {
	Chain       Chain      `json:"chain"`
	TxHash      string     `json:"tx_hash"`
	Confirmed   bool       `json:"confirmed"`
	BlockOrSlot *uint64    `json:"block_or_slot,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	From        string     `json:"from,omitempty"`
	To          string     `json:"to,omitempty"`
	Amount      string     `json:"amount,omitempty"`
}

// WalletInfo describes the configured wallet of a chain
type WalletInfo struct {
	Chain    Chain  `json:"chain"`
	Address  string `json:"address,omitempty"`
	ReadOnly bool   `json:"read_only"`
}

// ListFilter narrows ListPaymentRequests. Zero values match everything.
type ListFilter struct {
	Status PaymentStatus
	Chain  Chain
}

// Matches reports whether r passes the filter
func (f ListFilter) Matches(r *PaymentRequest) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Chain != "" && r.Chain != f.Chain {
		return false
	}
	return true
}
