package agentpay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeProvider is an in-memory ChainProvider for tests
type fakeProvider struct {
	chain  Chain
	wallet string

	mu        sync.Mutex
	inbound   []TransferObservation
	balances  map[string]*Balance
	sent      []TransferResult
	statuses  map[string]*TransactionStatus
	sendErr   error
	scanDelay time.Duration

	scans atomic.Int32
}

func newFakeProvider(chain Chain, wallet string) *fakeProvider {
	return &fakeProvider{
		chain:    chain,
		wallet:   wallet,
		balances: make(map[string]*Balance),
		statuses: make(map[string]*TransactionStatus),
	}
}

func (f *fakeProvider) addInbound(o TransferObservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, o)
}

func (f *fakeProvider) Chain() Chain { return f.chain }

func (f *fakeProvider) WalletAddress() string { return f.wallet }

func (f *fakeProvider) GetBalance(_ context.Context, address string) (*Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[address]; ok {
		return b, nil
	}
	return NewBalance(f.chain, address, nil), nil
}

func (f *fakeProvider) SendTransfer(_ context.Context, to string, amount string) (*TransferResult, error) {
	if f.wallet == "" {
		return nil, ErrNoWalletConfigured(f.chain)
	}
	if _, err := ParseAmount(amount); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	res := TransferResult{
		Chain:       f.chain,
		TxHash:      "0xsent",
		ExplorerURL: "https://explorer.test/tx/0xsent",
		From:        f.wallet,
		To:          to,
		Amount:      amount,
	}
	f.sent = append(f.sent, res)
	return &res, nil
}

func (f *fakeProvider) GetTransactionStatus(_ context.Context, txHash string) (*TransactionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.statuses[txHash]; ok {
		return st, nil
	}
	return &TransactionStatus{Chain: f.chain, TxHash: txHash}, nil
}

func (f *fakeProvider) GetRecentInboundTransfers(_ context.Context, address string, since time.Time) []TransferObservation {
	f.scans.Add(1)
	if f.scanDelay > 0 {
		time.Sleep(f.scanDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if address != f.wallet {
		return nil
	}
	var out []TransferObservation
	for _, o := range f.inbound {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out
}

var _ ChainProvider = (*fakeProvider)(nil)
