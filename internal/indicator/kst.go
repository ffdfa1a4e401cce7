package indicator

import (
	"math"
	"time"
)

// KSTResult는 Know Sure Thing 계산 결과입니다
type KSTResult struct {
	KST       float64
	Signal    float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다
func (r KSTResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// KST는 네 개의 ROC를 가중 합산한 모멘텀 지표를 구현합니다
type KST struct {
	BaseIndicator
	ROCPeriods   [4]int
	SMAPeriods   [4]int
	SignalPeriod int
}

// NewKST는 새로운 KST 지표 인스턴스를 생성합니다
func NewKST(rocPeriods, smaPeriods [4]int, signalPeriod int) *KST {
	return &KST{
		BaseIndicator: named("KST(%v,%v,%d)", rocPeriods, smaPeriods, signalPeriod),
		ROCPeriods:    rocPeriods,
		SMAPeriods:    smaPeriods,
		SignalPeriod:  signalPeriod,
	}
}

// NewDefaultKST는 10/15/20/30, 10/10/10/15, 9 설정의 KST를 생성합니다
func NewDefaultKST() *KST {
	return NewKST([4]int{10, 15, 20, 30}, [4]int{10, 10, 10, 15}, 9)
}

// MinLength는 첫 시그널 값을 얻기 위한 최소 데이터 수입니다
func (k *KST) MinLength() int {
	longest := 0
	for i := range k.ROCPeriods {
		if n := k.ROCPeriods[i] + k.SMAPeriods[i]; n > longest {
			longest = n
		}
	}
	return longest + k.SignalPeriod - 1
}

// Calculate는 KST와 시그널 라인을 계산합니다
func (k *KST) Calculate(prices []PriceData) ([]Result, error) {
	periods := append(k.ROCPeriods[:], k.SMAPeriods[:]...)
	if err := validate(k, prices, append(periods, k.SignalPeriod)...); err != nil {
		return nil, err
	}

	c := closes(prices)
	kst := make([]float64, len(prices))
	for j := range k.ROCPeriods {
		smoothed := smaSeries(rocSeries(c, k.ROCPeriods[j]), k.SMAPeriods[j])
		weight := float64(j + 1)
		for i, v := range smoothed {
			kst[i] += v * weight // NaN은 그대로 전파됩니다
		}
	}
	signal := smaSeries(kst, k.SignalPeriod)

	results := make([]Result, len(prices))
	for i := range prices {
		results[i] = KSTResult{KST: kst[i], Signal: signal[i], Timestamp: prices[i].Time}
	}
	return results, nil
}

// KSTCross는 마지막 두 구간에서 KST가 시그널 라인을 교차했는지 판단합니다
// 상향 교차는 "up", 하향 교차는 "down", 그 외는 "none"입니다
func KSTCross(results []Result) (direction string, crossed bool) {
	if len(results) < 2 {
		return "none", false
	}
	prev, ok1 := results[len(results)-2].(KSTResult)
	last, ok2 := results[len(results)-1].(KSTResult)
	if !ok1 || !ok2 {
		return "none", false
	}
	for _, v := range []float64{prev.KST, prev.Signal, last.KST, last.Signal} {
		if math.IsNaN(v) {
			return "none", false
		}
	}

	switch {
	case prev.KST <= prev.Signal && last.KST > last.Signal:
		return "up", true
	case prev.KST >= prev.Signal && last.KST < last.Signal:
		return "down", true
	default:
		return "none", false
	}
}
