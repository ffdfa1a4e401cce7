package signal

import (
	"context"
	"fmt"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/indicator"
)

// CrossFunc는 지표 결과의 마지막 두 구간에서 교차 방향을 판단합니다
type CrossFunc func(results []indicator.Result) (direction string, crossed bool)

// IndicatorTrend는 지표 교차로 추세를 판단합니다
type IndicatorTrend struct {
	source   CandleSource
	symbol   string
	interval domain.TimeInterval
	ind      indicator.Indicator
	cross    CrossFunc
	limit    int
}

// NewIndicatorTrend는 임의의 지표와 교차 판단 함수로 추세 신호를 만듭니다
// 캔들은 지표 최소 길이의 3배를 조회합니다
func NewIndicatorTrend(source CandleSource, symbol string, interval domain.TimeInterval, ind indicator.Indicator, cross CrossFunc) *IndicatorTrend {
	return &IndicatorTrend{
		source:   source,
		symbol:   symbol,
		interval: interval,
		ind:      ind,
		cross:    cross,
		limit:    ind.MinLength() * 3,
	}
}

// NewKSTTrend는 기본 KST 교차 추세를 생성합니다
func NewKSTTrend(source CandleSource, symbol string, interval domain.TimeInterval) *IndicatorTrend {
	return NewIndicatorTrend(source, symbol, interval, indicator.NewDefaultKST(), indicator.KSTCross)
}

// NewMACDTrend는 12/26/9 MACD 히스토그램 추세를 생성합니다
func NewMACDTrend(source CandleSource, symbol string, interval domain.TimeInterval) *IndicatorTrend {
	return NewIndicatorTrend(source, symbol, interval, indicator.NewMACD(12, 26, 9), indicator.MACDCross)
}

// NewTrend는 지표 이름으로 추세 신호를 고릅니다
func NewTrend(name string, source CandleSource, symbol string, interval domain.TimeInterval) (*IndicatorTrend, error) {
	switch name {
	case "", "kst":
		return NewKSTTrend(source, symbol, interval), nil
	case "macd":
		return NewMACDTrend(source, symbol, interval), nil
	default:
		return nil, fmt.Errorf("지원하지 않는 추세 지표: %s", name)
	}
}

// Name은 사용 중인 지표 이름입니다
func (t *IndicatorTrend) Name() string {
	return t.ind.Name()
}

// Trend는 마지막 캔들 기준 교차 방향을 반환합니다
func (t *IndicatorTrend) Trend(ctx context.Context) (domain.Trend, error) {
	candles, err := t.source.Candles(ctx, t.symbol, t.interval, t.limit)
	if err != nil {
		return domain.Trend{}, err
	}

	results, err := t.ind.Calculate(indicator.FromCandles(candles))
	if err != nil {
		return domain.Trend{}, fmt.Errorf("%s 계산 실패: %w", t.ind.Name(), err)
	}

	direction, crossed := t.cross(results)
	return domain.Trend{Direction: domain.TrendDirection(direction), Crossed: crossed}, nil
}
