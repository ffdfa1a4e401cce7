package indicator

import (
	"math"
	"time"
)

// MACDResult는 MACD 지표 계산 결과입니다
type MACDResult struct {
	MACD      float64   // 단기 EMA - 장기 EMA
	Signal    float64   // MACD의 EMA
	Histogram float64   // MACD - Signal
	Timestamp time.Time // 계산 시점
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다 (Result 인터페이스 구현)
func (r MACDResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// MACD는 Moving Average Convergence Divergence 지표를 구현합니다
type MACD struct {
	BaseIndicator
	ShortPeriod  int // 단기 EMA 기간
	LongPeriod   int // 장기 EMA 기간
	SignalPeriod int // 시그널 라인 기간
}

// NewMACD는 새로운 MACD 지표 인스턴스를 생성합니다
func NewMACD(shortPeriod, longPeriod, signalPeriod int) *MACD {
	return &MACD{
		BaseIndicator: named("MACD(%d,%d,%d)", shortPeriod, longPeriod, signalPeriod),
		ShortPeriod:   shortPeriod,
		LongPeriod:    longPeriod,
		SignalPeriod:  signalPeriod,
	}
}

// MinLength는 첫 히스토그램 값을 얻기 위한 최소 데이터 수입니다
func (m *MACD) MinLength() int {
	return m.LongPeriod + m.SignalPeriod - 1
}

// Calculate는 주어진 가격 데이터에 대해 MACD를 계산합니다
func (m *MACD) Calculate(prices []PriceData) ([]Result, error) {
	if err := validate(m, prices, m.ShortPeriod, m.LongPeriod, m.SignalPeriod); err != nil {
		return nil, err
	}

	c := closes(prices)
	short := emaSeries(c, m.ShortPeriod)
	long := emaSeries(c, m.LongPeriod)

	line := make([]float64, len(c))
	for i := range line {
		line[i] = short[i] - long[i] // 장기 EMA 이전은 NaN
	}
	signal := emaSeries(line, m.SignalPeriod)

	results := make([]Result, len(prices))
	for i := range prices {
		results[i] = MACDResult{
			MACD:      line[i],
			Signal:    signal[i],
			Histogram: line[i] - signal[i],
			Timestamp: prices[i].Time,
		}
	}
	return results, nil
}

// MACDCross는 마지막 두 구간에서 히스토그램 부호가 바뀌었는지 판단합니다
// 반환값은 KSTCross와 같습니다
func MACDCross(results []Result) (direction string, crossed bool) {
	if len(results) < 2 {
		return "none", false
	}
	prev, ok1 := results[len(results)-2].(MACDResult)
	last, ok2 := results[len(results)-1].(MACDResult)
	if !ok1 || !ok2 || math.IsNaN(prev.Histogram) || math.IsNaN(last.Histogram) {
		return "none", false
	}

	switch {
	case prev.Histogram <= 0 && last.Histogram > 0:
		return "up", true
	case prev.Histogram >= 0 && last.Histogram < 0:
		return "down", true
	default:
		return "none", false
	}
}
