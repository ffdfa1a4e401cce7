package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PendingTransaction은 제출 후 확인을 기다리는 트랜잭션입니다
type PendingTransaction struct {
	Hash        common.Hash
	SubmittedAt time.Time
	State       TxState
	Attempts    int
}

// Terminal은 더 이상 상태가 바뀌지 않는지 확인합니다
func (p *PendingTransaction) Terminal() bool {
	return p.State == TxConfirmed || p.State == TxTimedOut
}
