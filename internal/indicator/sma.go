package indicator

import (
	"math"
	"time"
)

// SMAResult는 단순이동평균 계산 결과입니다
type SMAResult struct {
	Value     float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다
func (r SMAResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// SMA는 단순이동평균 지표를 구현합니다
type SMA struct {
	BaseIndicator
	Period int
}

// NewSMA는 새로운 SMA 지표 인스턴스를 생성합니다
func NewSMA(period int) *SMA {
	return &SMA{BaseIndicator: named("SMA(%d)", period), Period: period}
}

// MinLength는 첫 평균 값을 얻기 위한 최소 데이터 수입니다
func (s *SMA) MinLength() int {
	return s.Period
}

// Calculate는 종가 기준 SMA를 계산합니다
func (s *SMA) Calculate(prices []PriceData) ([]Result, error) {
	if err := validate(s, prices, s.Period); err != nil {
		return nil, err
	}

	values := smaSeries(closes(prices), s.Period)
	results := make([]Result, len(prices))
	for i, v := range values {
		results[i] = SMAResult{Value: v, Timestamp: prices[i].Time}
	}
	return results, nil
}

// smaSeries는 NaN을 포함하지 않는 구간에 대해서만 이동평균을 계산합니다
func smaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum, valid := 0.0, 0
	for i, v := range values {
		if math.IsNaN(v) {
			valid = 0
			sum = 0
			out[i] = math.NaN()
			continue
		}
		sum += v
		valid++
		if valid > period {
			sum -= values[i-period]
			valid = period
		}
		if valid < period {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}
