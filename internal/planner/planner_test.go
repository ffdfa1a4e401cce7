package planner

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/equilibria/internal/domain"
)

var (
	usdc   = domain.Token{Address: common.HexToAddress("0x01"), Symbol: "USDC", Decimals: 6}
	tokenA = domain.Token{Address: common.HexToAddress("0x0a"), Symbol: "A", Decimals: 18}
	tokenB = domain.Token{Address: common.HexToAddress("0x0b"), Symbol: "B", Decimals: 8}
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func valuationOf(values map[domain.Token]int64, prices map[domain.Token]decimal.Decimal) *domain.Valuation {
	v := &domain.Valuation{Values: make(map[common.Address]domain.TokenValue), Total: new(big.Int)}
	for token, units := range values {
		price, ok := prices[token]
		if !ok {
			price = decimal.NewFromInt(1)
		}
		v.Values[token.Address] = domain.TokenValue{Token: token, Price: price, Value: e18(units)}
		v.Total.Add(v.Total, e18(units))
	}
	return v
}

func TestPlanTwoTokenScenario(t *testing.T) {
	p := New(usdc, 100)
	val := valuationOf(
		map[domain.Token]int64{tokenA: 9000, tokenB: 1000},
		map[domain.Token]decimal.Decimal{tokenA: decimal.NewFromInt(2), tokenB: decimal.NewFromInt(50)},
	)
	target := domain.AllocationTarget{tokenA.Address: 7000, tokenB.Address: 3000}

	plan, err := p.Plan(val, []domain.Token{tokenA, tokenB}, target)
	require.NoError(t, err)

	require.Len(t, plan.Sells, 1)
	require.Len(t, plan.Buys, 1)

	expected := new(big.Int).Div(new(big.Int).Mul(val.Total, big.NewInt(2000)), big.NewInt(10000))

	sell := plan.Sells[0]
	assert.Equal(t, tokenA.Address, sell.Token.Address)
	assert.Equal(t, domain.Sell, sell.Direction)
	assert.Equal(t, expected, sell.ValueToRebalance)
	assert.Equal(t, e18(1000), sell.Amount)
	assert.Equal(t, int64(-2000), sell.DifferenceBps())

	buy := plan.Buys[0]
	assert.Equal(t, tokenB.Address, buy.Token.Address)
	assert.Equal(t, domain.Buy, buy.Direction)
	assert.Equal(t, expected, buy.ValueToRebalance)
	assert.Equal(t, int64(2000_000_000), buy.Amount.Int64())

	assert.Equal(t, int64(9000), plan.Current[tokenA.Address])
	assert.True(t, plan.Has(tokenA.Address))
	assert.Len(t, plan.Instructions(), 2)
	assert.Equal(t, domain.Sell, plan.Instructions()[0].Direction)
}

func TestPlanThreshold(t *testing.T) {
	tests := []struct {
		name     string
		currentA int64
		want     int
	}{
		{"허용 범위 안", 7050, 0},
		{"정확히 limit", 7100, 0},
		{"limit 초과", 7101, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(usdc, 100)
			val := valuationOf(map[domain.Token]int64{tokenA: tt.currentA, tokenB: 10000 - tt.currentA}, nil)
			target := domain.AllocationTarget{tokenA.Address: 7000, tokenB.Address: 3000}

			plan, err := p.Plan(val, []domain.Token{tokenA, tokenB}, target)
			require.NoError(t, err)
			assert.Len(t, plan.Instructions(), tt.want)
			if tt.want == 0 {
				assert.True(t, plan.Empty())
			}
		})
	}
}

func TestPlanSkipsReferenceToken(t *testing.T) {
	p := New(usdc, 100)
	val := valuationOf(map[domain.Token]int64{usdc: 9000, tokenA: 500, tokenB: 500}, nil)
	target := domain.AllocationTarget{usdc.Address: 4000, tokenA.Address: 3000, tokenB.Address: 3000}

	plan, err := p.Plan(val, []domain.Token{usdc, tokenA, tokenB}, target)
	require.NoError(t, err)

	assert.Empty(t, plan.Sells)
	require.Len(t, plan.Buys, 2, "기준통화 이후의 토큰도 처리되어야 합니다")
	assert.False(t, plan.Has(usdc.Address))
}

func TestPlanZeroTotal(t *testing.T) {
	p := New(usdc, 100)
	val := &domain.Valuation{Values: map[common.Address]domain.TokenValue{}, Total: new(big.Int)}
	target := domain.AllocationTarget{tokenA.Address: 7000, tokenB.Address: 3000}

	plan, err := p.Plan(val, []domain.Token{tokenA, tokenB}, target)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
}

func TestPlanAllocationMismatch(t *testing.T) {
	p := New(usdc, 100)
	val := valuationOf(map[domain.Token]int64{tokenA: 1, tokenB: 1}, nil)

	_, err := p.Plan(val, []domain.Token{tokenA, tokenB}, domain.AllocationTarget{tokenA.Address: 7000, tokenB.Address: 2000})
	assert.ErrorIs(t, err, domain.ErrAllocationMismatch)

	_, err = p.Plan(val, []domain.Token{tokenA, tokenB}, domain.AllocationTarget{tokenA.Address: 10000})
	assert.ErrorIs(t, err, domain.ErrAllocationMismatch)
}
