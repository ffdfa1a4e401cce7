package valuation

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
	"github.com/assist-by/equilibria/internal/oracle"
)

// Holding은 가치 평가 대상 토큰과 유효 잔고입니다
type Holding struct {
	Token   domain.Token
	Balance *big.Int
}

// Engine은 보유 토큰의 기준통화 가치를 계산합니다
// 모든 가치는 18자리 고정소수점으로 맞춘 뒤 합산합니다
type Engine struct {
	oracle    oracle.PriceOracle
	reference common.Address
	chainID   int64
	log       zerolog.Logger
}

// NewEngine은 새로운 Engine을 생성합니다
func NewEngine(o oracle.PriceOracle, reference common.Address, chainID int64) *Engine {
	return &Engine{
		oracle:    o,
		reference: reference,
		chainID:   chainID,
		log:       logger.For("valuation"),
	}
}

// Value는 토큰별 가치와 총 가치를 계산합니다
// 가격을 얻지 못하면 domain.ErrPriceUnavailable로 전체 평가를 중단합니다
func (e *Engine) Value(ctx context.Context, holdings []Holding) (*domain.Valuation, error) {
	v := &domain.Valuation{
		Values: make(map[common.Address]domain.TokenValue, len(holdings)),
		Total:  new(big.Int),
	}

	for _, h := range holdings {
		balance := h.Balance
		if balance == nil {
			balance = new(big.Int)
		}

		tv := domain.TokenValue{Token: h.Token, Balance: new(big.Int).Set(balance)}
		if h.Token.Address == e.reference {
			tv.Price = decimal.NewFromInt(1)
			tv.Value = ScaleTo18(balance, h.Token.Decimals)
		} else {
			price, err := e.oracle.Price(ctx, h.Token, e.chainID)
			if err != nil {
				return nil, fmt.Errorf("%s 가치 평가 실패: %w", h.Token.Symbol, err)
			}
			tv.Price = price
			tv.Value = TokenValue(balance, h.Token.Decimals, price)
		}

		v.Values[h.Token.Address] = tv
		v.Total.Add(v.Total, tv.Value)

		e.log.Debug().
			Str("token", h.Token.Symbol).
			Str("balance", domain.ToDisplay(balance, h.Token.Decimals).String()).
			Str("price", tv.Price.String()).
			Str("value", domain.ToDisplay(tv.Value, domain.ValueDecimals).StringFixed(2)).
			Msg("토큰 가치")
	}

	e.log.Info().
		Str("total", domain.ToDisplay(v.Total, domain.ValueDecimals).StringFixed(2)).
		Int("tokens", len(v.Values)).
		Msg("포트폴리오 가치 평가")
	return v, nil
}

// Price18은 가격을 18자리 고정소수점 정수로 변환합니다
func Price18(price decimal.Decimal) *big.Int {
	return price.Shift(domain.ValueDecimals).BigInt()
}

// ScaleTo18은 decimals 자리 정수를 18자리 정수로 맞춥니다
func ScaleTo18(amount *big.Int, decimals uint8) *big.Int {
	out := new(big.Int).Set(amount)
	switch {
	case decimals < domain.ValueDecimals:
		out.Mul(out, pow10(domain.ValueDecimals-int(decimals)))
	case decimals > domain.ValueDecimals:
		out.Div(out, pow10(int(decimals)-domain.ValueDecimals))
	}
	return out
}

// ScaleFrom18은 18자리 정수를 decimals 자리 정수로 변환합니다 (버림)
func ScaleFrom18(amount *big.Int, decimals uint8) *big.Int {
	out := new(big.Int).Set(amount)
	switch {
	case decimals < domain.ValueDecimals:
		out.Div(out, pow10(domain.ValueDecimals-int(decimals)))
	case decimals > domain.ValueDecimals:
		out.Mul(out, pow10(int(decimals)-domain.ValueDecimals))
	}
	return out
}

// TokenValue는 balance * price18 / 1e18을 18자리로 맞춰 반환합니다
// 8자리 토큰은 1e10을 곱해 18자리로 맞춰집니다
func TokenValue(balance *big.Int, decimals uint8, price decimal.Decimal) *big.Int {
	scaled := ScaleTo18(balance, decimals)
	value := new(big.Int).Mul(scaled, Price18(price))
	return value.Div(value, pow10(domain.ValueDecimals))
}

// TokenAmount는 18자리 가치를 토큰 단위 금액으로 변환합니다 (value * 10^decimals / price18)
func TokenAmount(value *big.Int, decimals uint8, price decimal.Decimal) (*big.Int, error) {
	p := Price18(price)
	if p.Sign() <= 0 {
		return nil, domain.ErrPriceUnavailable
	}
	amount := new(big.Int).Mul(value, pow10(int(decimals)))
	return amount.Div(amount, p), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
