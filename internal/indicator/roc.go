package indicator

import (
	"math"
	"time"
)

// ROCResult는 변화율 계산 결과입니다 (%)
type ROCResult struct {
	Value     float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다
func (r ROCResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// ROC는 Rate of Change 지표를 구현합니다
type ROC struct {
	BaseIndicator
	Period int
}

// NewROC는 새로운 ROC 지표 인스턴스를 생성합니다
func NewROC(period int) *ROC {
	return &ROC{BaseIndicator: named("ROC(%d)", period), Period: period}
}

// MinLength는 첫 변화율을 얻기 위한 최소 데이터 수입니다
func (r *ROC) MinLength() int {
	return r.Period + 1
}

// Calculate는 종가 기준 ROC를 계산합니다
func (r *ROC) Calculate(prices []PriceData) ([]Result, error) {
	if err := validate(r, prices, r.Period); err != nil {
		return nil, err
	}

	values := rocSeries(closes(prices), r.Period)
	results := make([]Result, len(prices))
	for i, v := range values {
		results[i] = ROCResult{Value: v, Timestamp: prices[i].Time}
	}
	return results, nil
}

func rocSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < period || values[i-period] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i] - values[i-period]) / values[i-period] * 100
	}
	return out
}
