package domain

import "time"

// Candle은 추세/모멘텀 신호에 쓰이는 거래소 캔들입니다
type Candle struct {
	OpenTime  time.Time    // 캔들 시작 시간
	CloseTime time.Time    // 캔들 종료 시간
	Open      float64      // 시가
	High      float64      // 고가
	Low       float64      // 저가
	Close     float64      // 종가
	Volume    float64      // 거래량
	Symbol    string       // 심볼 (예: BTCUSDT)
	Interval  TimeInterval // 시간 간격 (예: 15m, 1h)
}

// CandleList는 캔들 데이터 목록입니다
type CandleList []Candle

// Closes는 종가 목록을 시간 순서대로 반환합니다
func (cl CandleList) Closes() []float64 {
	closes := make([]float64, len(cl))
	for i, c := range cl {
		closes[i] = c.Close
	}
	return closes
}
