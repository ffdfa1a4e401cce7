package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// VaultBinding은 토큰이 예치되는 이자 발생 볼트를 나타냅니다
type VaultBinding struct {
	Vault common.Address
}

// Token은 한 사이클 동안 사용되는 토큰 메타데이터입니다
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	Vault    *VaultBinding // 볼트가 없으면 nil
}

// HasVault는 토큰이 볼트에 연결되어 있는지 확인합니다
func (t Token) HasVault() bool {
	return t.Vault != nil && t.Vault.Vault != (common.Address{})
}

// Balance는 토큰의 지갑 잔고입니다
type Balance struct {
	Token   Token
	Raw     *big.Int        // 최소 단위 정수 잔고
	Display decimal.Decimal // 소수점 보정 잔고
}

// NewBalance는 원시 잔고로부터 Balance를 생성합니다
func NewBalance(token Token, raw *big.Int) Balance {
	if raw == nil {
		raw = new(big.Int)
	}
	return Balance{
		Token:   token,
		Raw:     new(big.Int).Set(raw),
		Display: ToDisplay(raw, token.Decimals),
	}
}

// ToDisplay는 정수 금액을 소수점 단위 금액으로 변환합니다
func ToDisplay(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// FromDisplay는 소수점 단위 금액을 정수 금액으로 변환합니다 (버림)
func FromDisplay(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).BigInt()
}
