package agentpay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	mu        sync.Mutex
	counters  map[string]int
	latencies map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: map[string]int{}, latencies: map[string]int{}}
}

func (m *recordingMetrics) IncCounter(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name+"/"+labels["chain"]]++
}

func (m *recordingMetrics) ObserveLatency(name string, _ time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[name+"/"+labels["chain"]]++
}

func newTestService(t *testing.T, providers ...ChainProvider) (*Service, *testClock) {
	t.Helper()
	clock := newTestClock()
	opts := []ServiceOption{WithStore(NewInMemoryStore(WithStoreClock(clock.Now)))}
	for _, p := range providers {
		opts = append(opts, WithProvider(p))
	}
	return NewService(opts...), clock
}

func TestServiceDefaultChain(t *testing.T) {
	base := newFakeProvider(ChainBase, "0xwallet")
	sol := newFakeProvider(ChainSolana, "SoLwallet")
	svc, _ := newTestService(t, base, sol)
	ctx := context.Background()

	info, err := svc.GetWalletAddress(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ChainBase, info.Chain)
	assert.Equal(t, "0xwallet", info.Address)
	assert.False(t, info.ReadOnly)

	info, err = svc.GetWalletAddress(ctx, "Solana")
	require.NoError(t, err)
	assert.Equal(t, ChainSolana, info.Chain)

	solDefault := NewService(WithProvider(sol), WithDefaultChain(ChainSolana))
	info, err = solDefault.GetWalletAddress(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "SoLwallet", info.Address)

	assert.Equal(t, []Chain{ChainBase, ChainSolana}, svc.SupportedChains())
}

func TestServiceUnknownChain(t *testing.T) {
	svc, _ := newTestService(t, newFakeProvider(ChainBase, "0xwallet"))
	ctx := context.Background()

	_, err := svc.GetWalletAddress(ctx, "dogechain")
	assert.True(t, IsCode(err, ErrCodeNotFound))

	_, err = svc.GetBalance(ctx, "", "solana")
	assert.True(t, IsCode(err, ErrCodeNotFound))
}

func TestServiceReadOnlyProvider(t *testing.T) {
	svc, _ := newTestService(t, newFakeProvider(ChainBase, ""))
	ctx := context.Background()

	info, err := svc.GetWalletAddress(ctx, "")
	require.NoError(t, err)
	assert.True(t, info.ReadOnly)
	assert.Empty(t, info.Address)

	_, err = svc.GetBalance(ctx, "", "")
	assert.True(t, IsCode(err, ErrCodeNoWalletConfigured))

	_, err = svc.CreatePaymentRequest(ctx, "1", "", "", nil)
	assert.True(t, IsCode(err, ErrCodeNoWalletConfigured))

	_, err = svc.SendUSDC(ctx, "0xto", "1", "")
	assert.True(t, IsCode(err, ErrCodeNoWalletConfigured))

	// Explicit addresses still work without a wallet
	bal, err := svc.GetBalance(ctx, "0xsomeone", "")
	require.NoError(t, err)
	assert.Equal(t, "0", bal.Balance)
	assert.Equal(t, "0", bal.Raw)
}

func TestServicePaymentFlow(t *testing.T) {
	provider := newFakeProvider(ChainBase, "0xwallet")
	rec := newRecordingMetrics()
	clock := newTestClock()
	svc := NewService(
		WithProvider(provider),
		WithStore(NewInMemoryStore(WithStoreClock(clock.Now))),
		WithMetrics(rec),
	)
	ctx := context.Background()

	var created, confirmed int
	svc.OnPaymentCreated(func(CreatedContext) error {
		created++
		return nil
	}).OnPaymentConfirmed(func(hc ConfirmedContext) error {
		confirmed++
		assert.Equal(t, "0xpaid", hc.Observation.TxHash)
		return errors.New("ignored")
	})

	req, err := svc.CreatePaymentRequest(ctx, "0.01", "", "invoice 7", intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, "0xwallet", req.Recipient)
	assert.Equal(t, "invoice 7", req.Memo)
	assert.Equal(t, 1, created)

	res, err := svc.CheckPaymentStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)

	provider.addInbound(TransferObservation{From: "0xpayer", Amount: "0.01", Timestamp: clock.Now(), TxHash: "0xpaid"})
	res, err = svc.CheckPaymentStatus(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, res.Status)
	assert.Equal(t, 1, confirmed)

	list, err := svc.ListPaymentRequests(ctx, "confirmed", "base")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)

	list, err = svc.ListPaymentRequests(ctx, "pending", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ListPaymentRequests(ctx, "settled", "")
	assert.True(t, IsCode(err, ErrCodeInvalidRequest))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.counters["create_payment_request/base"])
	assert.Equal(t, 2, rec.counters["check_payment_status/base"])
	assert.Equal(t, 1, rec.counters["payment_confirmed/base"])
	assert.Equal(t, 1, rec.counters["list_payment_requests_error/"])
	assert.Equal(t, 2, rec.latencies["check_payment_status/base"])
}

func TestServiceCreateRejectsAmount(t *testing.T) {
	svc, _ := newTestService(t, newFakeProvider(ChainBase, "0xwallet"))
	_, err := svc.CreatePaymentRequest(context.Background(), "-3", "", "", nil)
	assert.True(t, IsCode(err, ErrCodeInvalidAmount))
}

func TestServiceSendUSDC(t *testing.T) {
	provider := newFakeProvider(ChainBase, "0xwallet")
	svc, _ := newTestService(t, provider)

	var sent []TransferContext
	svc.OnTransferSent(func(tc TransferContext) error {
		sent = append(sent, tc)
		return nil
	})

	res, err := svc.SendUSDC(context.Background(), " 0xto ", "2.5", "")
	require.NoError(t, err)
	assert.Equal(t, "0xsent", res.TxHash)
	assert.Equal(t, "0xto", res.To)
	require.Len(t, sent, 1)
	assert.Equal(t, "0xsent", sent[0].Result.TxHash)

	provider.sendErr = WrapError(ErrCodeTransientLedgerFailure, "send failed", errors.New("rpc down"))
	_, err = svc.SendUSDC(context.Background(), "0xto", "1", "")
	assert.True(t, IsCode(err, ErrCodeTransientLedgerFailure))
	assert.Len(t, sent, 1)
}

func TestServiceGetTransactionStatus(t *testing.T) {
	provider := newFakeProvider(ChainBase, "0xwallet")
	block := uint64(12)
	provider.statuses["0xknown"] = &TransactionStatus{Chain: ChainBase, TxHash: "0xknown", Confirmed: true, BlockOrSlot: &block}
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	st, err := svc.GetTransactionStatus(ctx, "0xknown", "")
	require.NoError(t, err)
	assert.True(t, st.Confirmed)
	assert.Equal(t, uint64(12), *st.BlockOrSlot)

	st, err = svc.GetTransactionStatus(ctx, "0xunknown", "")
	require.NoError(t, err)
	assert.False(t, st.Confirmed)
	assert.Nil(t, st.BlockOrSlot)

	_, err = svc.GetTransactionStatus(ctx, "  ", "")
	assert.True(t, IsCode(err, ErrCodeInvalidRequest))
}

func TestServiceCanceledContext(t *testing.T) {
	svc, _ := newTestService(t, newFakeProvider(ChainBase, "0xwallet"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetBalance(ctx, "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceGetPaymentRequest(t *testing.T) {
	svc, clock := newTestService(t, newFakeProvider(ChainBase, "0xwallet"))
	ctx := context.Background()

	created, err := svc.CreatePaymentRequest(ctx, "3", "", "", intPtr(1))
	require.NoError(t, err)

	got, err := svc.GetPaymentRequest(ctx, " "+created.ID+" ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)

	clock.Advance(2 * time.Minute)
	got, err = svc.GetPaymentRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	_, err = svc.GetPaymentRequest(ctx, "missing")
	assert.True(t, IsCode(err, ErrCodeNotFound))
}
