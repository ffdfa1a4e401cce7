package domain

import (
	"errors"
	"fmt"
)

// 리밸런싱 중 발생할 수 있는 에러를 정의합니다
var (
	ErrPriceUnavailable    = errors.New("가격을 조회할 수 없습니다")
	ErrNoRouteFound        = errors.New("스왑 경로를 찾을 수 없습니다")
	ErrZeroAmount          = errors.New("금액이 0 이하입니다")
	ErrBroadcastTimeout    = errors.New("트랜잭션 확인 시간이 초과되었습니다")
	ErrInsufficientBalance = errors.New("잔고가 부족합니다")
	ErrAllocationMismatch  = errors.New("목표 비중이 올바르지 않습니다")
	ErrSimulationFailed    = errors.New("트랜잭션 시뮬레이션에 실패했습니다")
	ErrTransactionReverted = errors.New("트랜잭션이 revert 되었습니다")
	ErrPoolNotFound        = errors.New("유동성 풀이 없습니다")
)

// InstructionError는 개별 리밸런싱 지시의 실패를 나타냅니다
type InstructionError struct {
	Token string
	Op    string
	Err   error
}

// Error는 error 인터페이스를 구현합니다
func (e *InstructionError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("지시 에러 [%s, 작업: %s]: %v", e.Token, e.Op, e.Err)
	}
	return fmt.Sprintf("지시 에러 [작업: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *InstructionError) Unwrap() error {
	return e.Err
}

// NewInstructionError는 새로운 InstructionError를 생성합니다
func NewInstructionError(token, op string, err error) *InstructionError {
	return &InstructionError{
		Token: token,
		Op:    op,
		Err:   err,
	}
}

// AbortsCycle은 에러가 사이클 전체를 중단해야 하는지 판단합니다
func AbortsCycle(err error) bool {
	return errors.Is(err, ErrPriceUnavailable) || errors.Is(err, ErrAllocationMismatch)
}
