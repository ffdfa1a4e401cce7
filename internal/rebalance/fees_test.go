package rebalance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/equilibria/internal/chain"
)

func newRecharger(b *fakeBalances, s *fakeSwapper, e *fakeExec) *Recharger {
	return NewRecharger(b, s, e, FeeConfig{
		Account:       account,
		WrappedNative: wmatic,
		Reference:     usdc,
		Floor:         decimal.NewFromInt(2),
		Ceiling:       decimal.NewFromInt(3),
	})
}

func TestRecharge(t *testing.T) {
	eth := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), bi("1000000000000000000")) }

	tests := []struct {
		name      string
		native    *big.Int
		wrapped   *big.Int
		reference *big.Int
		wantSwap  *big.Int
		wantCall  func() (chain.Call, error)
	}{
		{
			name:     "하한 미만이면 래핑 네이티브 해제",
			native:   eth(1),
			wrapped:  eth(5),
			wantCall: func() (chain.Call, error) { return chain.UnwrapCall(wmatic, eth(2)) },
		},
		{
			name:      "래핑 네이티브도 부족하면 기준통화로 구매 후 해제",
			native:    eth(1),
			wrapped:   eth(1),
			reference: bi("10000000"),
			wantSwap:  bi("2000000"),
			wantCall:  func() (chain.Call, error) { return chain.UnwrapCall(wmatic, eth(1)) },
		},
		{
			name:      "기준통화가 부족하면 가진 만큼만 해제",
			native:    eth(1),
			wrapped:   eth(1),
			reference: bi("1000000"),
			wantCall:  func() (chain.Call, error) { return chain.UnwrapCall(wmatic, eth(1)) },
		},
		{
			name:    "래핑 네이티브가 없으면 아무것도 하지 않음",
			native:  eth(1),
			wrapped: new(big.Int),
		},
		{
			name:     "상한 초과분 래핑",
			native:   eth(5),
			wantCall: func() (chain.Call, error) { return chain.WrapCall(wmatic, eth(2)) },
		},
		{
			name:   "범위 안이면 아무것도 하지 않음",
			native: bi("2500000000000000000"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBalances(usdc)
			b.native = tt.native
			if tt.wrapped != nil {
				b.balances[wmatic] = tt.wrapped
			}
			if tt.reference != nil {
				b.balances[usdc.Address] = tt.reference
			}
			s := &fakeSwapper{}
			e := &fakeExec{}

			require.NoError(t, newRecharger(b, s, e).Recharge(context.Background()))

			if tt.wantSwap != nil {
				require.Len(t, s.calls, 1)
				assert.Equal(t, swapCall{usdc.Address, wmatic, tt.wantSwap}, s.calls[0])
			} else {
				assert.Empty(t, s.calls)
			}

			if tt.wantCall == nil {
				assert.Empty(t, e.calls)
				return
			}
			want, err := tt.wantCall()
			require.NoError(t, err)
			require.Len(t, e.calls, 1)
			assert.Equal(t, want, e.calls[0])
		})
	}
}

func TestRechargeExecError(t *testing.T) {
	b := newFakeBalances(usdc)
	b.native = bi("5000000000000000000")
	e := &fakeExec{err: errors.New("nonce too low")}

	err := newRecharger(b, &fakeSwapper{}, e).Recharge(context.Background())
	assert.Error(t, err)
}
