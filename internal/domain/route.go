package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Hop은 유동성 풀 하나를 거치는 경로 구간입니다
type Hop struct {
	TokenIn  common.Address
	TokenOut common.Address
	Fee      uint32 // 풀 수수료 (3000 = 0.3%)
}

// Route는 스왑 경로입니다. 직접 경로는 1개, 브릿지 경로는 2개의 구간을 가집니다
type Route struct {
	Hops []Hop
	// MinOut은 구간별 최소 출력량입니다 (슬리피지 반영)
	MinOut []*big.Int
}

// IsDirect는 직접 경로인지 확인합니다
func (r *Route) IsDirect() bool {
	return len(r.Hops) == 1
}

// Kind는 메트릭/로그용 경로 종류를 반환합니다
func (r *Route) Kind() string {
	if r.IsDirect() {
		return "direct"
	}
	return "bridge"
}

// AmountOutMinimum은 최종 최소 출력량을 반환합니다
func (r *Route) AmountOutMinimum() *big.Int {
	if len(r.MinOut) == 0 {
		return new(big.Int)
	}
	return r.MinOut[len(r.MinOut)-1]
}

// String은 경로를 사람이 읽을 수 있는 형태로 반환합니다
func (r *Route) String() string {
	if len(r.Hops) == 0 {
		return "<empty>"
	}
	var sb strings.Builder
	sb.WriteString(r.Hops[0].TokenIn.Hex())
	for _, h := range r.Hops {
		fmt.Fprintf(&sb, " -(%d)-> %s", h.Fee, h.TokenOut.Hex())
	}
	return sb.String()
}
