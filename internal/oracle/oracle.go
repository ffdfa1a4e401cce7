package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

// PriceOracle은 토큰의 기준통화 단가를 조회합니다
type PriceOracle interface {
	Price(ctx context.Context, token domain.Token, chainID int64) (decimal.Decimal, error)
}

// PriceSource는 거래소 심볼 단위 시세 조회 인터페이스입니다
type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// BinanceOracle은 바이낸스 현물 시세로 단가를 조회합니다
type BinanceOracle struct {
	source    PriceSource
	quote     string
	overrides map[string]string
	log       zerolog.Logger
}

// NewBinanceOracle은 새로운 BinanceOracle을 생성합니다
// overrides는 토큰 심볼 -> 거래소 심볼 매핑입니다 (예: WMATIC -> POLUSDT)
func NewBinanceOracle(source PriceSource, quote string, overrides map[string]string) *BinanceOracle {
	if quote == "" {
		quote = "USDT"
	}
	normalized := make(map[string]string, len(overrides))
	for k, v := range overrides {
		normalized[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return &BinanceOracle{
		source:    source,
		quote:     strings.ToUpper(quote),
		overrides: normalized,
		log:       logger.For("oracle"),
	}
}

// Symbol은 토큰 심볼을 거래소 심볼로 변환합니다
// 래핑 토큰은 W 접두사를 제거합니다 (WETH -> ETHUSDT)
func (o *BinanceOracle) Symbol(tokenSymbol string) string {
	upper := strings.ToUpper(tokenSymbol)
	if s, ok := o.overrides[upper]; ok {
		return s
	}
	base := upper
	if len(base) > 3 && strings.HasPrefix(base, "W") {
		base = base[1:]
	}
	return base + o.quote
}

// Price는 토큰 단가를 조회합니다. 조회 실패는 domain.ErrPriceUnavailable로 감쌉니다
func (o *BinanceOracle) Price(ctx context.Context, token domain.Token, chainID int64) (decimal.Decimal, error) {
	symbol := o.Symbol(token.Symbol)
	if symbol == o.quote+o.quote {
		return decimal.NewFromInt(1), nil
	}

	price, err := o.source.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s (%s): %v", domain.ErrPriceUnavailable, token.Symbol, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s (%s) 가격 %s", domain.ErrPriceUnavailable, token.Symbol, symbol, price)
	}

	o.log.Debug().
		Str("token", token.Symbol).
		Str("symbol", symbol).
		Int64("chainId", chainID).
		Str("price", price.String()).
		Msg("가격 조회")
	return price, nil
}
