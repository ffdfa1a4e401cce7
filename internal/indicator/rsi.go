package indicator

import (
	"math"
	"time"
)

// RSIResult는 RSI 지표 계산 결과입니다
type RSIResult struct {
	Value     float64 // 0~100
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다
func (r RSIResult) GetTimestamp() time.Time { return r.Timestamp }

// RSI는 Wilder 방식의 Relative Strength Index를 구현합니다
type RSI struct {
	BaseIndicator
	Period int
}

// NewRSI는 새로운 RSI 지표 인스턴스를 생성합니다
func NewRSI(period int) *RSI {
	return &RSI{BaseIndicator: named("RSI(%d)", period), Period: period}
}

// MinLength는 Period개의 변동을 얻기 위한 최소 데이터 수입니다
func (r *RSI) MinLength() int {
	return r.Period + 1
}

// Calculate는 종가 기준 RSI를 계산합니다
func (r *RSI) Calculate(prices []PriceData) ([]Result, error) {
	if err := validate(r, prices, r.Period); err != nil {
		return nil, err
	}

	values := rsiSeries(closes(prices), r.Period)
	results := make([]Result, len(prices))
	for i, v := range values {
		results[i] = RSIResult{Value: v, Timestamp: prices[i].Time}
	}
	return results, nil
}

// rsiSeries는 첫 period개 변동의 평균으로 시작해 Wilder 평활을 적용합니다
// 앞 period개 구간은 NaN입니다
func rsiSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) <= period {
		return out
	}

	p := float64(period)
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i < len(values); i++ {
		gain, loss := 0.0, 0.0
		if delta := values[i] - values[i-1]; delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i <= period {
			avgGain += gain / p
			avgLoss += loss / p
			if i < period {
				continue
			}
		} else {
			avgGain = (avgGain*(p-1) + gain) / p
			avgLoss = (avgLoss*(p-1) + loss) / p
		}
		out[i] = toRSI(avgGain, avgLoss)
	}
	return out
}

func toRSI(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50 // 완전 횡보
	case avgLoss == 0:
		return 100
	default:
		return 100 - 100/(1+avgGain/avgLoss)
	}
}
