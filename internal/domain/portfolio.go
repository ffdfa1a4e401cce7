package domain

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// VaultPosition은 볼트에 예치된 토큰의 상태입니다
type VaultPosition struct {
	Vault        common.Address
	Underlying   common.Address
	Shares       *big.Int // 볼트 지분 잔고
	Redeemable   *big.Int // previewWithdraw(Shares)
	Interest     *big.Int // Shares - Redeemable, 0 미만이면 0
	LastInterest *big.Int // 이전 사이클에서 관측한 이자
}

// InterestDelta는 이전 사이클 대비 이자 증가분을 반환합니다
func (p *VaultPosition) InterestDelta() *big.Int {
	if p == nil || p.Interest == nil {
		return new(big.Int)
	}
	if p.LastInterest == nil {
		return new(big.Int).Set(p.Interest)
	}
	return new(big.Int).Sub(p.Interest, p.LastInterest)
}

// TokenValue는 토큰 하나의 기준통화 가치입니다 (18자리 고정소수점)
type TokenValue struct {
	Token   Token
	Balance *big.Int        // 볼트 보정이 반영된 유효 잔고
	Price   decimal.Decimal // 기준통화 단가, 기준통화 토큰은 1
	Value   *big.Int
}

// Valuation은 사이클별 토큰 가치와 총 가치입니다
type Valuation struct {
	Values map[common.Address]TokenValue
	Total  *big.Int
}

// ValueOf는 토큰의 가치를 반환합니다. 없으면 0입니다
func (v *Valuation) ValueOf(token common.Address) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	tv, ok := v.Values[token]
	if !ok || tv.Value == nil {
		return new(big.Int)
	}
	return tv.Value
}

// AllocationTarget은 토큰별 목표 비중(bp)입니다
type AllocationTarget map[common.Address]int64

// Sum은 비중 합계를 반환합니다
func (a AllocationTarget) Sum() int64 {
	var sum int64
	for _, w := range a {
		sum += w
	}
	return sum
}

// Validate는 비중 합계가 정확히 10000인지 검사합니다
func (a AllocationTarget) Validate() error {
	for addr, w := range a {
		if w < 0 {
			return fmt.Errorf("%w: %s 비중이 음수입니다 (%d)", ErrAllocationMismatch, addr.Hex(), w)
		}
	}
	if sum := a.Sum(); sum != BasisPoints {
		return fmt.Errorf("%w: 비중 합계 %d != %d", ErrAllocationMismatch, sum, BasisPoints)
	}
	return nil
}

// Covers는 목표 비중이 주어진 토큰 집합과 정확히 일치하는지 검사합니다
func (a AllocationTarget) Covers(tokens []Token) error {
	if len(a) != len(tokens) {
		return fmt.Errorf("%w: 비중 %d개, 토큰 %d개", ErrAllocationMismatch, len(a), len(tokens))
	}
	for _, t := range tokens {
		if _, ok := a[t.Address]; !ok {
			return fmt.Errorf("%w: %s 비중이 없습니다", ErrAllocationMismatch, t.Symbol)
		}
	}
	return nil
}

// String은 로그용 문자열을 반환합니다
func (a AllocationTarget) String() string {
	keys := make([]common.Address, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k.Hex(), a[k]))
	}
	return strings.Join(parts, ",")
}

// DriftInstruction은 한 토큰의 리밸런싱 지시입니다
type DriftInstruction struct {
	Token            Token
	Direction        Direction
	CurrentBps       int64
	TargetBps        int64
	ValueToRebalance *big.Int // 기준통화 가치 (18자리)
	Amount           *big.Int // 매도: 토큰 단위, 매수: 기준통화 단위
}

// DifferenceBps는 목표 비중과 현재 비중의 차이입니다
func (d DriftInstruction) DifferenceBps() int64 {
	return d.TargetBps - d.CurrentBps
}
