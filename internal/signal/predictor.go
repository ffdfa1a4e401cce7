package signal

import (
	"context"
	"fmt"

	"github.com/assist-by/equilibria/internal/domain"
)

// RegressionPredictor는 최근 종가에 선형 회귀를 적합해 다음 종가를 예측합니다
type RegressionPredictor struct {
	source   CandleSource
	symbol   string
	interval domain.TimeInterval
	period   int
}

// NewRegressionPredictor는 새로운 RegressionPredictor를 생성합니다
func NewRegressionPredictor(source CandleSource, symbol string, interval domain.TimeInterval, period int) *RegressionPredictor {
	if period < 2 {
		period = 2
	}
	return &RegressionPredictor{source: source, symbol: symbol, interval: interval, period: period}
}

// Predict는 다음 구간 예측가와 마지막 종가를 반환합니다
func (r *RegressionPredictor) Predict(ctx context.Context) (domain.Prediction, error) {
	candles, err := r.source.Candles(ctx, r.symbol, r.interval, r.period)
	if err != nil {
		return domain.Prediction{}, err
	}
	closes := candles.Closes()
	if len(closes) < 2 {
		return domain.Prediction{}, fmt.Errorf("%s 예측에 필요한 데이터가 부족합니다: %d", r.symbol, len(closes))
	}

	slope, intercept := fitLine(closes)
	return domain.Prediction{
		Predicted: slope*float64(len(closes)) + intercept,
		Actual:    closes[len(closes)-1],
	}, nil
}

// fitLine은 x = 0..n-1에 대한 최소제곱 직선을 구합니다
func fitLine(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
