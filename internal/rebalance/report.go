package rebalance

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/journal"
	"github.com/assist-by/equilibria/internal/notification"
	"github.com/assist-by/equilibria/internal/planner"
	"github.com/assist-by/equilibria/internal/signal"
)

// State는 사이클의 최종 상태입니다
type State string

const (
	StateIdle       State = "idle"       // 목표 비중과의 차이가 임계값 이하
	StateRebalanced State = "rebalanced" // 매매 단계까지 실행
	StateDryRun     State = "dry_run"    // 계획만 세우고 실행하지 않음
	StateAborted    State = "aborted"    // 평가 또는 계획 단계에서 중단
)

// 지시 처리 결과
const (
	StatusExecuted = "executed"
	StatusSkipped  = "skipped"
	StatusGated    = "gated"
	StatusFailed   = "failed"
)

// 지시 종류
const (
	OpSell    = "sell"
	OpBuy     = "buy"
	OpDeposit = "deposit"
)

// Outcome은 지시 하나의 처리 결과입니다
type Outcome struct {
	Token       domain.Token
	Op          string
	Instruction *domain.DriftInstruction // 예치는 nil
	Amount      *big.Int
	Status      string
	Route       string
	TxHash      common.Hash
	Partial     bool
	Err         error
}

// Report는 한 사이클의 실행 보고서입니다
type Report struct {
	CycleID    uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	State      State
	Selection  signal.Selection
	Valuation  *domain.Valuation
	Plan       *planner.Plan
	Outcomes   []Outcome
	Err        error
}

// Count는 상태별 지시 개수를 반환합니다
func (r *Report) Count(status string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Total은 총 가치를 반환합니다. 평가 전이면 nil입니다
func (r *Report) Total() *big.Int {
	if r.Valuation == nil {
		return nil
	}
	return r.Valuation.Total
}

func (r *Report) weightsLabel() string {
	if r.Selection.Up {
		return "up"
	}
	return "down"
}

func (r *Report) totalDisplay() string {
	return domain.ToDisplay(r.Total(), domain.ValueDecimals).String()
}

// Record는 저장용 사이클 기록을 만듭니다
func (r *Report) Record() journal.Record {
	rec := journal.Record{
		CycleID:         r.CycleID.String(),
		Timestamp:       r.StartedAt,
		State:           string(r.State),
		Signal:          string(r.Selection.Trend.Direction),
		Crossed:         r.Selection.Trend.Crossed,
		AISignal:        string(r.Selection.AI),
		SelectedWeights: r.weightsLabel(),
		Weights:         make(map[string]int64, len(r.Selection.Weights)),
		TotalValue:      r.totalDisplay(),
	}

	symbols := make(map[common.Address]string)
	if r.Valuation != nil {
		for addr, tv := range r.Valuation.Values {
			symbols[addr] = tv.Token.Symbol
		}
	}
	for addr, w := range r.Selection.Weights {
		key := symbols[addr]
		if key == "" {
			key = addr.Hex()
		}
		rec.Weights[key] = w
	}

	for _, o := range r.Outcomes {
		in := journal.Instruction{
			Token:  o.Token.Symbol,
			Op:     o.Op,
			Status: o.Status,
			Route:  o.Route,
		}
		if o.Instruction != nil {
			in.CurrentBps = o.Instruction.CurrentBps
			in.TargetBps = o.Instruction.TargetBps
		}
		if o.Amount != nil {
			in.Amount = o.Amount.String()
		}
		if o.TxHash != (common.Hash{}) {
			in.TxHash = o.TxHash.Hex()
		}
		if o.Err != nil {
			in.Error = o.Err.Error()
		}
		rec.Instructions = append(rec.Instructions, in)
	}
	return rec
}

// Summary는 알림용 요약을 만듭니다
func (r *Report) Summary() notification.CycleSummary {
	return notification.CycleSummary{
		CycleID:    r.CycleID.String(),
		State:      string(r.State),
		Trend:      string(r.Selection.Trend.Direction),
		AISignal:   string(r.Selection.AI),
		Weights:    r.weightsLabel(),
		TotalValue: r.totalDisplay(),
		Executed:   r.Count(StatusExecuted),
		Skipped:    r.Count(StatusSkipped) + r.Count(StatusGated),
		Failed:     r.Count(StatusFailed),
	}
}
