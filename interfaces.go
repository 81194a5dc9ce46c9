package agentpay

import (
	"context"
	"time"
)

// ChainProvider is implemented by every ledger family (see mechanisms/evm
// and mechanisms/svm). The store and reconciler depend only on this
// interface.
type ChainProvider interface {
	// Chain returns the ledger this provider serves
	Chain() Chain

	// WalletAddress returns the address derived from the configured key
	// material, or "" when the provider runs read-only
	WalletAddress() string

	// GetBalance returns the USDC holding of address.
	// An address that never held the token has a zero balance, not an error.
	GetBalance(ctx context.Context, address string) (*Balance, error)

	// SendTransfer submits a single USDC transfer. It is never retried.
	// Returns an ErrCodeNoWalletConfigured error when no signing key is present.
	SendTransfer(ctx context.Context, to string, amount string) (*TransferResult, error)

	// GetTransactionStatus inspects a transaction. An unknown or not yet
	// propagated hash yields Confirmed=false rather than an error.
	GetTransactionStatus(ctx context.Context, txHash string) (*TransactionStatus, error)

	// GetRecentInboundTransfers scans a bounded recent window and returns the
	// transfers that landed at address no earlier than since. Order is not
	// guaranteed. On any query failure the result is empty.
	GetRecentInboundTransfers(ctx context.Context, address string, since time.Time) []TransferObservation
}

// Store owns the lifecycle of payment requests.
// Implementations must be safe for concurrent use and return copies.
type Store interface {
	Create(chain Chain, recipient string, amount string, memo string, expiresInMinutes *int) (*PaymentRequest, error)
	Get(id string) (*PaymentRequest, error)
	Confirm(id string, txHash string) (*PaymentRequest, error)
	List(filter ListFilter) []*PaymentRequest
}
