package indicator

import (
	"math"
	"time"
)

// EMAResult는 EMA 지표 계산 결과입니다
type EMAResult struct {
	Value     float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다 (Result 인터페이스 구현)
func (r EMAResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// EMA는 지수이동평균 지표를 구현합니다
// 첫 값은 Period 구간의 단순평균으로 시작합니다
type EMA struct {
	BaseIndicator
	Period int
}

// NewEMA는 새로운 EMA 지표 인스턴스를 생성합니다
func NewEMA(period int) *EMA {
	return &EMA{BaseIndicator: named("EMA(%d)", period), Period: period}
}

// MinLength는 첫 EMA 값을 얻기 위한 최소 데이터 수입니다
func (e *EMA) MinLength() int {
	return e.Period
}

// Calculate는 종가 기준 EMA를 계산합니다
func (e *EMA) Calculate(prices []PriceData) ([]Result, error) {
	if err := validate(e, prices, e.Period); err != nil {
		return nil, err
	}

	values := emaSeries(closes(prices), e.Period)
	results := make([]Result, len(prices))
	for i, v := range values {
		results[i] = EMAResult{Value: v, Timestamp: prices[i].Time}
	}
	return results, nil
}

// emaSeries는 NaN이 아닌 연속 구간에서 단순평균으로 시작하는 EMA를 계산합니다
// NaN을 만나면 다시 시작합니다
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	alpha := 2.0 / float64(period+1)
	ema, sum, valid := 0.0, 0.0, 0
	for i, v := range values {
		if math.IsNaN(v) {
			ema, sum, valid = 0, 0, 0
			out[i] = math.NaN()
			continue
		}
		valid++
		switch {
		case valid < period:
			sum += v
			out[i] = math.NaN()
		case valid == period:
			ema = (sum + v) / float64(period)
			out[i] = ema
		default:
			ema = alpha*v + (1-alpha)*ema
			out[i] = ema
		}
	}
	return out
}
