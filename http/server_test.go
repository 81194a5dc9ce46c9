package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentpay "github.com/x402-foundation/agentpay"
	"github.com/x402-foundation/agentpay/test/mocks/ledger"
)

const wallet = "0x2222222222222222222222222222222222222222"

func init() {
	gin.SetMode(gin.TestMode)
}

type countingRecorder struct {
	counters map[string]int
}

func (r *countingRecorder) IncCounter(name string, _ map[string]string) {
	r.counters[name]++
}

func (r *countingRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

func newTestServer(t *testing.T, opts ...Options) (*Server, *agentpay.Service, *ledger.Provider) {
	t.Helper()
	base := ledger.New(agentpay.ChainBase, wallet)
	svc := agentpay.NewService(
		agentpay.WithProvider(base),
		agentpay.WithProvider(ledger.New(agentpay.ChainSolana, "")),
	)
	return NewServer(svc, opts...), svc, base
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	body := map[string]interface{}{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []interface{}{"base", "solana"}, body["chains"])
}

func TestMetricsRoute(t *testing.T) {
	s, _, _ := newTestServer(t)
	w, _ := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("agentpay_events_total 1\n"))
	})
	s, _, _ = newTestServer(t, WithMetricsHandler(handler))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agentpay_events_total")
}

func TestListChains(t *testing.T) {
	s, _, _ := newTestServer(t)

	w, body := do(t, s, http.MethodGet, "/v1/chains")
	require.Equal(t, http.StatusOK, w.Code)

	chains, ok := body["chains"].([]interface{})
	require.True(t, ok)
	require.Len(t, chains, 2)

	first := chains[0].(map[string]interface{})
	assert.Equal(t, "base", first["chain"])
	assert.Equal(t, true, first["default"])
	assert.Equal(t, wallet, first["address"])

	second := chains[1].(map[string]interface{})
	assert.Equal(t, "solana", second["chain"])
	assert.Equal(t, true, second["read_only"])
}

func TestPaymentLifecycle(t *testing.T) {
	s, svc, base := newTestServer(t)
	ctx := context.Background()

	req, err := svc.CreatePaymentRequest(ctx, "0.01", "", "coffee", nil)
	require.NoError(t, err)

	w, body := do(t, s, http.MethodGet, "/v1/payments/"+req.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "coffee", body["memo"])

	w, body = do(t, s, http.MethodPost, "/v1/payments/"+req.ID+"/check")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", body["status"])

	base.AddInbound(agentpay.TransferObservation{
		From:      "0xpayer",
		Amount:    "0.01",
		Timestamp: time.Now().Add(time.Second),
		TxHash:    "0xfeed",
	})

	w, body = do(t, s, http.MethodPost, "/v1/payments/"+req.ID+"/check")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "0xfeed", body["tx_hash"])

	w, body = do(t, s, http.MethodGet, "/v1/payments?status=confirmed")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])

	w, body = do(t, s, http.MethodGet, "/v1/payments?status=pending&chain=base")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []interface{}{}, body["requests"])
}

func TestErrorStatus(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{"unknown payment", http.MethodGet, "/v1/payments/nope", http.StatusNotFound, agentpay.ErrCodeNotFound},
		{"unknown payment check", http.MethodPost, "/v1/payments/nope/check", http.StatusNotFound, agentpay.ErrCodeNotFound},
		{"bad status filter", http.MethodGet, "/v1/payments?status=paid", http.StatusBadRequest, agentpay.ErrCodeInvalidRequest},
		{"unknown chain filter", http.MethodGet, "/v1/payments?chain=tron", http.StatusNotFound, agentpay.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, s, tt.method, tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{agentpay.ErrCodeNotFound, http.StatusNotFound},
		{agentpay.ErrCodeInvalidAmount, http.StatusBadRequest},
		{agentpay.ErrCodeInvalidAddress, http.StatusBadRequest},
		{agentpay.ErrCodeInvalidRequest, http.StatusBadRequest},
		{agentpay.ErrCodeNoWalletConfigured, http.StatusConflict},
		{agentpay.ErrCodeTransientLedgerFailure, http.StatusBadGateway},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.code), tt.code)
	}
}

func TestRequestMetrics(t *testing.T) {
	rec := &countingRecorder{counters: map[string]int{}}
	s, _, _ := newTestServer(t, WithMetrics(rec))

	do(t, s, http.MethodGet, "/healthz")
	do(t, s, http.MethodGet, "/v1/payments/missing")

	assert.Equal(t, 1, rec.counters["http_2xx"])
	assert.Equal(t, 1, rec.counters["http_4xx"])
}

func TestMCPMount(t *testing.T) {
	called := false
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})
	s, _, _ := newTestServer(t, WithMCPHandler(mcpHandler))

	req := httptest.NewRequest(http.MethodPost, "/mcp/sse?sessionid=abc", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.True(t, called)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
