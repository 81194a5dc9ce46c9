package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	rec.IncCounter("payment_confirmed", map[string]string{"chain": "base"})
	rec.IncCounter("payment_confirmed", map[string]string{"chain": "base"})
	rec.IncCounter("payment_confirmed", map[string]string{"chain": "solana"})
	rec.ObserveLatency("check_payment_status", 120*time.Millisecond, map[string]string{"chain": "base"})

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.counters.WithLabelValues("payment_confirmed", "base")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.counters.WithLabelValues("payment_confirmed", "solana")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.histogram))
}

func TestPrometheusRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err)
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))
	assert.NotPanics(t, func() {
		OrNoop(nil).IncCounter("x", nil)
		OrNoop(nil).ObserveLatency("x", time.Second, nil)
	})
}
