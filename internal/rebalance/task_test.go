package rebalance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/equilibria/internal/vault"
)

type cycleStep struct {
	next vault.Snapshot
	err  error
}

type scriptedCycler struct {
	seen  []vault.Snapshot
	steps []cycleStep
}

func (s *scriptedCycler) RunCycle(_ context.Context, snapshot vault.Snapshot) (*Report, vault.Snapshot, error) {
	s.seen = append(s.seen, snapshot.Clone())
	step := s.steps[len(s.seen)-1]
	return &Report{State: StateIdle}, step.next, step.err
}

func TestTaskThreadsSnapshot(t *testing.T) {
	c := &scriptedCycler{steps: []cycleStep{
		{next: vault.Snapshot{usdc.Address: big.NewInt(5)}},
		{next: vault.Snapshot{usdc.Address: big.NewInt(5)}, err: errors.New("aborted")},
		{next: vault.Snapshot{usdc.Address: big.NewInt(9)}},
	}}
	task := NewTask(c)

	require.NoError(t, task.Execute(context.Background()))
	assert.Error(t, task.Execute(context.Background()))
	require.NoError(t, task.Execute(context.Background()))

	require.Len(t, c.seen, 3)
	assert.Empty(t, c.seen[0])
	assert.Equal(t, int64(5), c.seen[1][usdc.Address].Int64())
	assert.Equal(t, int64(5), c.seen[2][usdc.Address].Int64())
	assert.Equal(t, int64(9), task.snapshot[usdc.Address].Int64())
	assert.Equal(t, StateIdle, task.LastReport().State)
}
