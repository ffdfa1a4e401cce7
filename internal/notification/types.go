package notification

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendCycleSummary는 사이클 결과 요약을 전송합니다
	SendCycleSummary(summary CycleSummary) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendTradeInfo는 스왑 실행 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 스왑 실행 정보를 정의합니다
type TradeInfo struct {
	Token     string // 매매 대상 토큰 심볼
	Direction string // "BUY" or "SELL"
	AmountIn  string // 투입 수량 (표시 단위)
	TokenIn   string
	TokenOut  string
	Route     string // "direct" or "bridge"
	TxHash    string
	Partial   bool // 상환 부족으로 줄어든 금액인지 여부
}

// CycleSummary는 사이클 결과 요약입니다
type CycleSummary struct {
	CycleID    string
	State      string
	Trend      string
	AISignal   string
	Weights    string // "up" or "down"
	TotalValue string // 기준통화 표시 단위
	Executed   int
	Skipped    int
	Failed     int
}

// GetColorForDirection은 매매 방향에 따른 색상을 반환합니다
func GetColorForDirection(direction string) int {
	switch direction {
	case "BUY":
		return ColorSuccess
	case "SELL":
		return ColorError
	default:
		return ColorInfo
	}
}

// GetColorForSummary는 사이클 결과에 따른 색상을 반환합니다
func GetColorForSummary(s CycleSummary) int {
	switch {
	case s.Failed > 0:
		return ColorWarning
	case s.Executed > 0:
		return ColorSuccess
	default:
		return ColorInfo
	}
}
