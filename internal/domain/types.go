package domain

import "time"

// Direction은 리밸런싱 지시의 매매 방향을 정의합니다
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// TxState는 제출된 트랜잭션의 확인 상태를 정의합니다
type TxState int

const (
	TxPending TxState = iota
	TxConfirmed
	TxTimedOut
)

// String은 TxState의 문자열 표현을 반환합니다
func (s TxState) String() string {
	switch s {
	case TxPending:
		return "Pending"
	case TxConfirmed:
		return "Confirmed"
	case TxTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// TrendDirection은 추세 분류기의 방향을 정의합니다
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendNone TrendDirection = "none"
)

// TimeInterval은 캔들 차트의 시간 간격을 정의합니다
type TimeInterval string

const (
	Interval1m  TimeInterval = "1m"
	Interval5m  TimeInterval = "5m"
	Interval15m TimeInterval = "15m"
	Interval1h  TimeInterval = "1h"
	Interval4h  TimeInterval = "4h"
	Interval1d  TimeInterval = "1d"
)

// Duration은 시간 간격을 time.Duration으로 변환합니다
func (t TimeInterval) Duration() time.Duration {
	switch t {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// BasisPoints는 10000 = 100% 기준의 비율 단위입니다
const BasisPoints = 10000

// ValueDecimals는 모든 포트폴리오 가치가 공유하는 고정소수점 자릿수입니다
const ValueDecimals = 18
