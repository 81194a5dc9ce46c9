// Package ledger provides an in-memory agentpay.ChainProvider for tests
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	agentpay "github.com/x402-foundation/agentpay"
)

// Provider is a scriptable ledger. Inbound transfers, balances and
// transaction statuses are set up front; sent transfers are recorded.
type Provider struct {
	chain  agentpay.Chain
	wallet string

	mu       sync.Mutex
	inbound  []agentpay.TransferObservation
	balances map[string]string
	statuses map[string]*agentpay.TransactionStatus
	sent     []agentpay.TransferResult
	sendErr  error
	scans    int
	nextTx   int
}

// New creates a provider for chain. An empty wallet makes it read-only.
func New(chain agentpay.Chain, wallet string) *Provider {
	return &Provider{
		chain:    chain,
		wallet:   wallet,
		balances: make(map[string]string),
		statuses: make(map[string]*agentpay.TransactionStatus),
	}
}

// AddInbound makes o visible to later scans
func (p *Provider) AddInbound(o agentpay.TransferObservation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbound = append(p.inbound, o)
}

// SetBalance sets the decimal balance reported for address
func (p *Provider) SetBalance(address, amount string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[address] = amount
}

// SetStatus sets the status reported for a transaction hash
func (p *Provider) SetStatus(st *agentpay.TransactionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[st.TxHash] = st
}

// FailSends makes every SendTransfer return err
func (p *Provider) FailSends(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendErr = err
}

// Sent returns the transfers submitted so far
func (p *Provider) Sent() []agentpay.TransferResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]agentpay.TransferResult(nil), p.sent...)
}

// Scans returns how many inbound scans ran
func (p *Provider) Scans() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scans
}

func (p *Provider) Chain() agentpay.Chain { return p.chain }

func (p *Provider) WalletAddress() string { return p.wallet }

func (p *Provider) GetBalance(_ context.Context, address string) (*agentpay.Balance, error) {
	p.mu.Lock()
	amount, ok := p.balances[address]
	p.mu.Unlock()
	if !ok {
		return agentpay.NewBalance(p.chain, address, nil), nil
	}
	raw, err := agentpay.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	return agentpay.NewBalance(p.chain, address, raw), nil
}

func (p *Provider) SendTransfer(_ context.Context, to string, amount string) (*agentpay.TransferResult, error) {
	if p.wallet == "" {
		return nil, agentpay.ErrNoWalletConfigured(p.chain)
	}
	if to == "" {
		return nil, agentpay.NewError(agentpay.ErrCodeInvalidAddress, "recipient is required", nil)
	}
	if _, err := agentpay.ParseAmount(amount); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return nil, p.sendErr
	}
	p.nextTx++
	hash := fmt.Sprintf("tx-%s-%d", p.chain, p.nextTx)
	res := agentpay.TransferResult{
		Chain:       p.chain,
		TxHash:      hash,
		ExplorerURL: "https://explorer.invalid/tx/" + hash,
		From:        p.wallet,
		To:          to,
		Amount:      amount,
	}
	p.sent = append(p.sent, res)
	return &res, nil
}

func (p *Provider) GetTransactionStatus(_ context.Context, txHash string) (*agentpay.TransactionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.statuses[txHash]; ok {
		cp := *st
		return &cp, nil
	}
	return &agentpay.TransactionStatus{Chain: p.chain, TxHash: txHash}, nil
}

func (p *Provider) GetRecentInboundTransfers(_ context.Context, address string, since time.Time) []agentpay.TransferObservation {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scans++
	if address != p.wallet {
		return nil
	}
	var out []agentpay.TransferObservation
	for _, o := range p.inbound {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out
}

var _ agentpay.ChainProvider = (*Provider)(nil)
