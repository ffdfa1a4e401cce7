package metrics

import (
	"io"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New("test", prometheus.NewRegistry())

	total, _ := new(big.Int).SetString("1300000000000000000000", 10)
	m.ObserveCycle("rebalanced", total)
	m.ObserveCycle("idle", nil)
	m.ObserveInstruction("sell", "executed")
	m.ObserveInstruction("sell", "executed")
	m.ObserveSwap("bridge")
	m.ObserveInterest("USDC", big.NewInt(5))
	m.ObserveConfirmation(3, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("rebalanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("idle")))
	assert.Equal(t, 1300.0, testutil.ToFloat64(m.PortfolioValue))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InstructionsTotal.WithLabelValues("sell", "executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapsTotal.WithLabelValues("bridge")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.VaultInterestDelta.WithLabelValues("USDC")))
}

func TestHandler(t *testing.T) {
	m := New("test", prometheus.NewRegistry())
	m.ObserveSwap("direct")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_swap_total{kind="direct"} 1`)
}
