package indicator

import (
	"math"
	"time"
)

// StochRSIResult는 Stochastic RSI 계산 결과입니다
type StochRSIResult struct {
	RSI       float64
	StochRSI  float64 // (RSI - 최저 RSI) / (최고 RSI - 최저 RSI) * 100
	K         float64
	D         float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다
func (r StochRSIResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// StochRSI는 RSI에 스토캐스틱을 적용한 지표를 구현합니다
type StochRSI struct {
	BaseIndicator
	RSIPeriod   int
	StochPeriod int
	KPeriod     int
	DPeriod     int
}

// NewStochRSI는 새로운 StochRSI 지표 인스턴스를 생성합니다
func NewStochRSI(rsiPeriod, stochPeriod, kPeriod, dPeriod int) *StochRSI {
	return &StochRSI{
		BaseIndicator: named("StochRSI(%d,%d,%d,%d)", rsiPeriod, stochPeriod, kPeriod, dPeriod),
		RSIPeriod:     rsiPeriod,
		StochPeriod:   stochPeriod,
		KPeriod:       kPeriod,
		DPeriod:       dPeriod,
	}
}

// MinLength는 첫 StochRSI 값을 얻기 위한 최소 데이터 수입니다
func (s *StochRSI) MinLength() int {
	return s.RSIPeriod + s.StochPeriod
}

// Calculate는 RSI와 StochRSI를 함께 계산합니다
func (s *StochRSI) Calculate(prices []PriceData) ([]Result, error) {
	if err := validate(s, prices, s.RSIPeriod, s.StochPeriod, s.KPeriod, s.DPeriod); err != nil {
		return nil, err
	}

	rsi := rsiSeries(closes(prices), s.RSIPeriod)
	stoch := make([]float64, len(rsi))
	for i := range rsi {
		stoch[i] = math.NaN()
		if i+1 < s.StochPeriod {
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		valid := true
		for _, v := range rsi[i+1-s.StochPeriod : i+1] {
			if math.IsNaN(v) {
				valid = false
				break
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !valid {
			continue
		}
		if hi == lo {
			stoch[i] = 0
			continue
		}
		stoch[i] = (rsi[i] - lo) / (hi - lo) * 100
	}

	k := smaSeries(stoch, s.KPeriod)
	d := smaSeries(k, s.DPeriod)

	results := make([]Result, len(prices))
	for i := range prices {
		results[i] = StochRSIResult{RSI: rsi[i], StochRSI: stoch[i], K: k[i], D: d[i], Timestamp: prices[i].Time}
	}
	return results, nil
}
