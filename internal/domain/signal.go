package domain

// Momentum은 모멘텀 오실레이터 결과입니다
type Momentum struct {
	Value      float64
	Overbought bool
	Oversold   bool
}

// Trend는 추세 분류 결과입니다
type Trend struct {
	Direction TrendDirection
	Crossed   bool
}

// Prediction은 가격 예측 결과입니다
type Prediction struct {
	Predicted float64
	Actual    float64
}

// Direction은 예측가와 현재가의 비교로 방향을 반환합니다
func (p Prediction) Direction() TrendDirection {
	switch {
	case p.Predicted > p.Actual:
		return TrendUp
	case p.Predicted < p.Actual:
		return TrendDown
	default:
		return TrendNone
	}
}
