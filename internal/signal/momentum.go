package signal

import (
	"context"
	"fmt"
	"math"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/indicator"
)

// MomentumConfig는 RSI 기반 모멘텀 판단 기준입니다
type MomentumConfig struct {
	Interval           domain.TimeInterval
	RSIPeriod          int
	RSIOverbought      float64
	RSIOversold        float64
	StochRSIOverbought float64
	StochRSIOversold   float64
}

// RSIMomentum은 RSI와 StochRSI로 과매수/과매도를 판단합니다
type RSIMomentum struct {
	source CandleSource
	symbol func(tokenSymbol string) string
	cfg    MomentumConfig
}

// NewRSIMomentum은 새로운 RSIMomentum을 생성합니다
// symbol은 토큰 심볼을 거래소 심볼로 변환합니다
func NewRSIMomentum(source CandleSource, symbol func(string) string, cfg MomentumConfig) *RSIMomentum {
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	return &RSIMomentum{source: source, symbol: symbol, cfg: cfg}
}

// Momentum은 토큰의 현재 모멘텀 상태를 계산합니다
func (m *RSIMomentum) Momentum(ctx context.Context, token domain.Token) (domain.Momentum, error) {
	symbol := m.symbol(token.Symbol)
	stoch := indicator.NewStochRSI(m.cfg.RSIPeriod, m.cfg.RSIPeriod, 3, 3)

	candles, err := m.source.Candles(ctx, symbol, m.cfg.Interval, (m.cfg.RSIPeriod*2+6)*3)
	if err != nil {
		return domain.Momentum{}, err
	}

	results, err := stoch.Calculate(indicator.FromCandles(candles))
	if err != nil {
		return domain.Momentum{}, fmt.Errorf("%s StochRSI 계산 실패: %w", symbol, err)
	}

	last := results[len(results)-1].(indicator.StochRSIResult)
	rsi, stochRSI := last.RSI, last.StochRSI
	if math.IsNaN(rsi) || math.IsNaN(stochRSI) {
		return domain.Momentum{}, fmt.Errorf("%s 모멘텀 값을 계산할 수 없습니다", symbol)
	}

	return domain.Momentum{
		Value:      rsi,
		Overbought: rsi > m.cfg.RSIOverbought && stochRSI > m.cfg.StochRSIOverbought,
		Oversold:   rsi < m.cfg.RSIOversold && stochRSI < m.cfg.StochRSIOversold,
	}, nil
}
