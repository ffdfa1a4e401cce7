package executor

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
)

type fakeBackend struct {
	nonce       uint64
	sent        []*types.Transaction
	receipts    map[common.Hash]*types.Receipt
	receiptErr  error
	receiptHits int
	// receiptAfter번째 조회부터 영수증을 반환합니다 (0이면 즉시)
	receiptAfter int
	status       uint64
	callErr      error
	calls        int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{receipts: make(map[common.Hash]*types.Receipt), status: types.ReceiptStatusSuccessful}
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	f.calls++
	return nil, f.callErr
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int), nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(137), nil }

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(100), nil }

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.receiptHits++
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	if f.receiptAfter < 0 || f.receiptHits <= f.receiptAfter {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{TxHash: hash, Status: f.status, GasUsed: 21000}, nil
}

type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return nil
}

func newTestExecutor(t *testing.T, backend *fakeBackend, sleeper *sleepRecorder, opts ...Option) *Executor {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts = append([]Option{WithSleep(sleeper.sleep)}, opts...)
	e, err := New(backend, hex.EncodeToString(crypto.FromECDSA(key)), big.NewInt(137), opts...)
	require.NoError(t, err)
	return e
}

func TestWaitForConfirmationTimeout(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptAfter = -1
	sleeper := &sleepRecorder{}
	var observed []int
	e := newTestExecutor(t, backend, sleeper, WithObserver(func(attempts int, confirmed bool) {
		assert.False(t, confirmed)
		observed = append(observed, attempts)
	}))

	pending := &domain.PendingTransaction{Hash: common.HexToHash("0x01"), State: domain.TxPending}
	confirmed, err := e.WaitForConfirmation(context.Background(), pending)
	require.NoError(t, err)

	assert.False(t, confirmed)
	assert.Equal(t, 20, backend.receiptHits)
	assert.Equal(t, 20, pending.Attempts)
	assert.Equal(t, domain.TxTimedOut, pending.State)
	require.Len(t, sleeper.durations, 20)
	for _, d := range sleeper.durations {
		assert.Equal(t, 5*time.Second, d)
	}
	assert.Equal(t, []int{20}, observed)
}

func TestWaitForConfirmationFound(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptAfter = 2
	sleeper := &sleepRecorder{}
	e := newTestExecutor(t, backend, sleeper)

	pending := &domain.PendingTransaction{Hash: common.HexToHash("0x02")}
	confirmed, err := e.WaitForConfirmation(context.Background(), pending)
	require.NoError(t, err)

	assert.True(t, confirmed)
	assert.Equal(t, 3, backend.receiptHits)
	assert.Len(t, sleeper.durations, 2)
	assert.Equal(t, domain.TxConfirmed, pending.State)
	assert.True(t, pending.Terminal())
}

func TestWaitForConfirmationTerminal(t *testing.T) {
	tests := []struct {
		name      string
		state     domain.TxState
		confirmed bool
	}{
		{"확정된 트랜잭션", domain.TxConfirmed, true},
		{"만료된 트랜잭션", domain.TxTimedOut, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			sleeper := &sleepRecorder{}
			e := newTestExecutor(t, backend, sleeper)

			pending := &domain.PendingTransaction{Hash: common.HexToHash("0x03"), State: tt.state}
			confirmed, err := e.WaitForConfirmation(context.Background(), pending)
			require.NoError(t, err)

			assert.Equal(t, tt.confirmed, confirmed)
			assert.Zero(t, backend.receiptHits)
			assert.Empty(t, sleeper.durations)
		})
	}
}

func TestWaitForConfirmationRPCErrorsConsumeAttempts(t *testing.T) {
	backend := newFakeBackend()
	backend.receiptErr = errors.New("connection reset")
	sleeper := &sleepRecorder{}
	e := newTestExecutor(t, backend, sleeper, WithMaxAttempts(3))

	confirmed, err := e.WaitForConfirmation(context.Background(), &domain.PendingTransaction{})
	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.Equal(t, 3, backend.receiptHits)
}

func TestExecute(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000000ee")

	t.Run("확인 성공", func(t *testing.T) {
		backend := newFakeBackend()
		e := newTestExecutor(t, backend, &sleepRecorder{})

		receipt, err := e.Execute(context.Background(), chain.Call{To: to, Data: []byte{0x01}})
		require.NoError(t, err)
		require.NotNil(t, receipt)
		require.Len(t, backend.sent, 1)

		tx := backend.sent[0]
		assert.Equal(t, int64(120), tx.GasPrice().Int64())
		assert.Equal(t, to, *tx.To())
		sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(137)), tx)
		require.NoError(t, err)
		assert.Equal(t, e.Address(), sender)
	})

	t.Run("시간 초과", func(t *testing.T) {
		backend := newFakeBackend()
		backend.receiptAfter = -1
		e := newTestExecutor(t, backend, &sleepRecorder{})

		_, err := e.Execute(context.Background(), chain.Call{To: to})
		assert.ErrorIs(t, err, domain.ErrBroadcastTimeout)
	})

	t.Run("revert", func(t *testing.T) {
		backend := newFakeBackend()
		backend.status = types.ReceiptStatusFailed
		e := newTestExecutor(t, backend, &sleepRecorder{})

		_, err := e.Execute(context.Background(), chain.Call{To: to})
		assert.ErrorIs(t, err, domain.ErrTransactionReverted)
	})
}

func TestExecuteBundle(t *testing.T) {
	router := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	approve, err := chain.ApproveCall(token, router, big.NewInt(10))
	require.NoError(t, err)

	t.Run("승인 후 실행", func(t *testing.T) {
		backend := newFakeBackend()
		e := newTestExecutor(t, backend, &sleepRecorder{})

		err := e.ExecuteBundle(context.Background(), router, chain.Bundle{
			Approvals: []chain.Call{approve},
			Calls:     []chain.Call{{To: token, Data: []byte{0x02}}},
		})
		require.NoError(t, err)
		assert.Len(t, backend.sent, 2)
		assert.Equal(t, 1, backend.calls)
		assert.Equal(t, router, *backend.sent[1].To())
	})

	t.Run("시뮬레이션 실패 시 제출하지 않음", func(t *testing.T) {
		backend := newFakeBackend()
		backend.callErr = errors.New("execution reverted")
		e := newTestExecutor(t, backend, &sleepRecorder{})

		err := e.ExecuteBundle(context.Background(), router, chain.Bundle{
			Calls: []chain.Call{{To: token, Data: []byte{0x02}}},
		})
		assert.ErrorIs(t, err, domain.ErrSimulationFailed)
		assert.Empty(t, backend.sent)
	})
}

func TestNewInvalidKey(t *testing.T) {
	_, err := New(newFakeBackend(), "not-a-key", big.NewInt(1))
	assert.Error(t, err)
}
