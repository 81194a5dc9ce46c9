package agentpay

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/x402-foundation/agentpay/logger"
)

// CheckResult is the outcome of one reconciliation check
type CheckResult struct {
	PaymentID              string        `json:"payment_id"`
	Status                 PaymentStatus `json:"status"`
	Chain                  Chain         `json:"chain"`
	Amount                 string        `json:"amount"`
	Recipient              string        `json:"recipient"`
	Memo                   string        `json:"memo,omitempty"`
	ExpiresAt              time.Time     `json:"expires_at"`
	TxHash                 string        `json:"tx_hash,omitempty"`
	From                   string        `json:"from,omitempty"`
	ConfirmedAt            *time.Time    `json:"confirmed_at,omitempty"`
	RecentTransfersChecked *int          `json:"recent_transfers_checked,omitempty"`
	Message                string        `json:"message"`
}

// ProviderLookup resolves the provider for a chain
type ProviderLookup func(chain Chain) (ChainProvider, bool)

// Reconciler matches observed inbound transfers against pending payment
// requests and drives the store's confirm transition.
//
// Concurrent checks for the same payment id share one scan, so at most one
// Confirm runs per id at a time.
type Reconciler struct {
	store     Store
	providers ProviderLookup
	hooks     []ConfirmedHook
	log       logger.Logger
	group     singleflight.Group
}

// NewReconciler creates a reconciler over store and the given provider lookup
func NewReconciler(store Store, providers ProviderLookup, log logger.Logger, hooks ...ConfirmedHook) *Reconciler {
	return &Reconciler{
		store:     store,
		providers: providers,
		hooks:     hooks,
		log:       logger.OrNoop(log),
	}
}

// Check reconciles one payment request.
//
// Confirmed and expired requests are reported verbatim without scanning.
// For a pending request the chain's provider is asked for inbound transfers
// to the recipient since the request's creation second; the first
// observation (in scan order) within tolerance confirms the request.
func (r *Reconciler) Check(ctx context.Context, id string) (*CheckResult, error) {
	v, err, _ := r.group.Do(id, func() (interface{}, error) {
		return r.check(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	// Shared results must not alias between callers
	res := *v.(*CheckResult)
	return &res, nil
}

func (r *Reconciler) check(ctx context.Context, id string) (*CheckResult, error) {
	req, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return snapshotResult(req), nil
	}

	provider, ok := r.providers(req.Chain)
	if !ok {
		return nil, ErrChainNotConfigured(req.Chain)
	}

	expected, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	since := time.Unix(req.CreatedAt.Unix(), 0)
	observations := provider.GetRecentInboundTransfers(ctx, req.Recipient, since)

	match, found := r.findMatch(observations, expected)
	if !found {
		checked := len(observations)
		return &CheckResult{
			PaymentID:              req.ID,
			Status:                 StatusPending,
			Chain:                  req.Chain,
			Amount:                 req.Amount,
			Recipient:              req.Recipient,
			Memo:                   req.Memo,
			ExpiresAt:              req.ExpiresAt,
			RecentTransfersChecked: &checked,
			Message:                fmt.Sprintf("Waiting for %s %s to %s", req.Amount, TokenSymbol, req.Recipient),
		}, nil
	}

	confirmed, err := r.store.Confirm(req.ID, match.TxHash)
	if err != nil {
		return nil, err
	}
	if confirmed.Status != StatusConfirmed {
		// Expired between the read and the confirm
		return snapshotResult(confirmed), nil
	}

	r.log.Info("payment request confirmed", map[string]any{
		"payment_id": confirmed.ID,
		"chain":      string(confirmed.Chain),
		"tx_hash":    match.TxHash,
		"from":       match.From,
		"amount":     match.Amount,
	})
	r.runHooks(ConfirmedContext{
		Ctx:         ctx,
		Request:     *confirmed,
		Observation: match,
	})

	res := snapshotResult(confirmed)
	res.From = match.From
	return res, nil
}

func (r *Reconciler) findMatch(observations []TransferObservation, expected *big.Int) (TransferObservation, bool) {
	for _, o := range observations {
		amount, err := ParseAmount(o.Amount)
		if err != nil {
			r.log.Debug("skipping observation with unparsable amount", map[string]any{
				"tx_hash": o.TxHash,
				"amount":  o.Amount,
			})
			continue
		}
		if MeetsTolerance(amount, expected) {
			return o, true
		}
	}
	return TransferObservation{}, false
}

func (r *Reconciler) runHooks(hc ConfirmedContext) {
	for _, hook := range r.hooks {
		if err := hook(hc); err != nil {
			r.log.Warn("payment confirmed hook failed", map[string]any{
				"payment_id": hc.Request.ID,
				"error":      err,
			})
		}
	}
}

func snapshotResult(req *PaymentRequest) *CheckResult {
	res := &CheckResult{
		PaymentID:   req.ID,
		Status:      req.Status,
		Chain:       req.Chain,
		Amount:      req.Amount,
		Recipient:   req.Recipient,
		Memo:        req.Memo,
		ExpiresAt:   req.ExpiresAt,
		TxHash:      req.ConfirmedTxHash,
		ConfirmedAt: req.ConfirmedAt,
	}
	switch req.Status {
	case StatusConfirmed:
		res.Message = fmt.Sprintf("Payment of %s %s received", req.Amount, TokenSymbol)
	case StatusExpired:
		res.Message = "Payment request expired before a matching transfer arrived"
	default:
		res.Message = fmt.Sprintf("Waiting for %s %s to %s", req.Amount, TokenSymbol, req.Recipient)
	}
	return res
}
