package rebalance

import (
	"context"
	"sync"

	"github.com/assist-by/equilibria/internal/vault"
)

// Cycler는 사이클 하나를 실행합니다
type Cycler interface {
	RunCycle(ctx context.Context, snapshot vault.Snapshot) (*Report, vault.Snapshot, error)
}

// Task는 스케줄러가 실행하는 리밸런싱 작업입니다
// 볼트 이자 스냅샷을 사이클 사이에 이어 줍니다
type Task struct {
	cycler Cycler

	mu       sync.Mutex
	snapshot vault.Snapshot
	last     *Report
}

// NewTask는 새로운 Task를 생성합니다
func NewTask(cycler Cycler) *Task {
	return &Task{
		cycler:   cycler,
		snapshot: vault.Snapshot{},
	}
}

// Execute는 사이클 하나를 실행하고 스냅샷을 갱신합니다
func (t *Task) Execute(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	report, next, err := t.cycler.RunCycle(ctx, t.snapshot)
	if next != nil {
		t.snapshot = next
	}
	t.last = report
	return err
}

// LastReport는 마지막 사이클 보고서를 반환합니다
func (t *Task) LastReport() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
