package signal

import (
	"context"

	"github.com/assist-by/equilibria/internal/domain"
)

// TrendSignal은 시장 추세를 분류합니다
type TrendSignal interface {
	Trend(ctx context.Context) (domain.Trend, error)
}

// MomentumSignal은 토큰의 과매수/과매도 상태를 판단합니다
type MomentumSignal interface {
	Momentum(ctx context.Context, token domain.Token) (domain.Momentum, error)
}

// PricePredictor는 다음 가격을 예측합니다
type PricePredictor interface {
	Predict(ctx context.Context) (domain.Prediction, error)
}

// CandleSource는 캔들 데이터를 제공합니다
type CandleSource interface {
	Candles(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error)
}
