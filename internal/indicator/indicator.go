package indicator

import (
	"fmt"
	"time"

	"github.com/assist-by/equilibria/internal/domain"
)

// PriceData는 지표 계산에 필요한 가격 정보를 정의합니다
type PriceData struct {
	Time   time.Time // 타임스탬프
	Open   float64   // 시가
	High   float64   // 고가
	Low    float64   // 저가
	Close  float64   // 종가
	Volume float64   // 거래량
}

// Result는 지표 계산의 기본 결과 구조체입니다
// 계산 불가 구간의 값은 math.NaN()입니다
type Result interface {
	GetTimestamp() time.Time
}

// ValidationError는 입력값 검증 에러를 정의합니다
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("유효하지 않은 %s: %v", e.Field, e.Err)
}

// Indicator는 추세/모멘텀 신호가 사용하는 기술적 지표입니다
type Indicator interface {
	// Calculate는 입력과 같은 길이의 결과를 반환합니다
	Calculate(prices []PriceData) ([]Result, error)

	// Name은 설정을 포함한 지표 이름입니다
	Name() string

	// MinLength는 첫 유효 값을 얻기 위한 최소 데이터 수입니다
	MinLength() int
}

// BaseIndicator는 지표 구현체가 공통으로 사용하는 이름을 보관합니다
type BaseIndicator struct {
	name string
}

// Name은 지표의 이름을 반환합니다
func (b *BaseIndicator) Name() string {
	return b.name
}

func named(format string, args ...interface{}) BaseIndicator {
	return BaseIndicator{name: fmt.Sprintf(format, args...)}
}

// validate는 기간과 데이터 길이를 검사합니다
func validate(ind Indicator, prices []PriceData, periods ...int) error {
	for _, p := range periods {
		if p <= 0 {
			return &ValidationError{Field: "period", Err: fmt.Errorf("%s: period must be > 0", ind.Name())}
		}
	}
	if need := ind.MinLength(); len(prices) < need {
		return &ValidationError{
			Field: "prices",
			Err:   fmt.Errorf("가격 데이터가 부족합니다. 필요: %d, 현재: %d", need, len(prices)),
		}
	}
	return nil
}

// FromCandles는 캔들 데이터를 지표 계산용 PriceData로 변환합니다
func FromCandles(candles domain.CandleList) []PriceData {
	priceData := make([]PriceData, len(candles))
	for i, candle := range candles {
		priceData[i] = PriceData{
			Time:   candle.OpenTime,
			Open:   candle.Open,
			High:   candle.High,
			Low:    candle.Low,
			Close:  candle.Close,
			Volume: candle.Volume,
		}
	}
	return priceData
}

func closes(prices []PriceData) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Close
	}
	return out
}
