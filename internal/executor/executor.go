package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

const (
	defaultPollInterval  = 5 * time.Second
	defaultMaxAttempts   = 20
	defaultGasMultiplier = 120 // %
)

// SleepFunc는 폴링 사이의 대기를 수행합니다
type SleepFunc func(ctx context.Context, d time.Duration) error

// ConfirmationObserver는 확인 폴링 결과를 전달받습니다
type ConfirmationObserver func(attempts int, confirmed bool)

// Executor는 단일 서명자로 트랜잭션을 제출하고 확인합니다
// 서명자는 하나의 직렬 자원이므로 제출과 확인은 mutex로 직렬화됩니다
type Executor struct {
	backend       chain.Backend
	key           *ecdsa.PrivateKey
	from          common.Address
	chainID       *big.Int
	pollInterval  time.Duration
	maxAttempts   int
	gasMultiplier int64
	sleep         SleepFunc
	observer      ConfirmationObserver
	now           func() time.Time
	mu            sync.Mutex
	log           zerolog.Logger
}

// Option은 Executor 생성 옵션을 정의합니다
type Option func(*Executor)

// WithPollInterval은 영수증 폴링 간격을 설정합니다
func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) {
		e.pollInterval = d
	}
}

// WithMaxAttempts는 최대 폴링 횟수를 설정합니다
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		e.maxAttempts = n
	}
}

// WithGasPriceMultiplier는 가스 가격 배율(%)을 설정합니다
func WithGasPriceMultiplier(pct int64) Option {
	return func(e *Executor) {
		e.gasMultiplier = pct
	}
}

// WithSleep은 대기 함수를 교체합니다
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// WithObserver는 확인 결과 관찰자를 설정합니다
func WithObserver(fn ConfirmationObserver) Option {
	return func(e *Executor) {
		e.observer = fn
	}
}

// New는 새로운 Executor를 생성합니다
func New(backend chain.Backend, privateKeyHex string, chainID *big.Int, opts ...Option) (*Executor, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("개인키 파싱 실패: %w", err)
	}
	if chainID == nil {
		return nil, fmt.Errorf("chainID가 없습니다")
	}

	e := &Executor{
		backend:       backend,
		key:           key,
		from:          crypto.PubkeyToAddress(key.PublicKey),
		chainID:       new(big.Int).Set(chainID),
		pollInterval:  defaultPollInterval,
		maxAttempts:   defaultMaxAttempts,
		gasMultiplier: defaultGasMultiplier,
		sleep:         Sleep,
		now:           time.Now,
		log:           logger.For("executor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Address는 서명자 주소를 반환합니다
func (e *Executor) Address() common.Address {
	return e.from
}

// ChainID는 서명에 사용하는 체인 ID를 반환합니다
func (e *Executor) ChainID() *big.Int {
	return new(big.Int).Set(e.chainID)
}

// Submit은 트랜잭션을 서명해 제출하고 대기 중 트랜잭션을 반환합니다
func (e *Executor) Submit(ctx context.Context, c chain.Call) (*domain.PendingTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submit(ctx, c)
}

func (e *Executor) submit(ctx context.Context, c chain.Call) (*domain.PendingTransaction, error) {
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, fmt.Errorf("nonce 조회 실패: %w", err)
	}

	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("가스 가격 조회 실패: %w", err)
	}
	gasPrice = new(big.Int).Div(new(big.Int).Mul(gasPrice, big.NewInt(e.gasMultiplier)), big.NewInt(100))

	to := c.To
	gasLimit, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Value: value,
		Data:  c.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("가스 추정 실패: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     c.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("트랜잭션 서명 실패: %w", err)
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("트랜잭션 전송 실패: %w", err)
	}

	e.log.Info().
		Str("hash", signed.Hash().Hex()).
		Str("to", to.Hex()).
		Uint64("nonce", nonce).
		Str("gasPrice", gasPrice.String()).
		Msg("트랜잭션 제출")

	return &domain.PendingTransaction{
		Hash:        signed.Hash(),
		SubmittedAt: e.now(),
		State:       domain.TxPending,
	}, nil
}

// WaitForConfirmation은 영수증이 나타날 때까지 고정 간격으로 폴링합니다
// 최대 횟수 안에 영수증이 없으면 false를 반환하며 pending과 drop을 구분하지 않습니다
// 이미 확정되었거나 만료된 트랜잭션은 다시 조회하지 않습니다
func (e *Executor) WaitForConfirmation(ctx context.Context, pending *domain.PendingTransaction) (bool, error) {
	if pending.Terminal() {
		return pending.State == domain.TxConfirmed, nil
	}
	receipt, err := e.poll(ctx, pending)
	if err != nil {
		return false, err
	}
	return receipt != nil, nil
}

func (e *Executor) poll(ctx context.Context, pending *domain.PendingTransaction) (*types.Receipt, error) {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		pending.Attempts = attempt

		receipt, err := e.backend.TransactionReceipt(ctx, pending.Hash)
		switch {
		case err == nil && receipt != nil:
			pending.State = domain.TxConfirmed
			e.observe(attempt, true)
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.log.Warn().Err(err).Str("hash", pending.Hash.Hex()).Int("attempt", attempt).Msg("영수증 조회 실패")
		}

		if err := e.sleep(ctx, e.pollInterval); err != nil {
			return nil, err
		}
	}

	pending.State = domain.TxTimedOut
	e.observe(e.maxAttempts, false)
	return nil, nil
}

func (e *Executor) observe(attempts int, confirmed bool) {
	if e.observer != nil {
		e.observer(attempts, confirmed)
	}
}

// Execute는 트랜잭션을 제출하고 확인까지 기다립니다
func (e *Executor) Execute(ctx context.Context, c chain.Call) (*types.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execute(ctx, c)
}

func (e *Executor) execute(ctx context.Context, c chain.Call) (*types.Receipt, error) {
	pending, err := e.submit(ctx, c)
	if err != nil {
		return nil, err
	}

	receipt, err := e.poll(ctx, pending)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		e.log.Error().
			Str("hash", pending.Hash.Hex()).
			Int("attempts", pending.Attempts).
			Msg("트랜잭션 확인 시간 초과, 수동 확인이 필요합니다")
		return nil, fmt.Errorf("%w: %s", domain.ErrBroadcastTimeout, pending.Hash.Hex())
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s", domain.ErrTransactionReverted, pending.Hash.Hex())
	}

	e.log.Info().
		Str("hash", pending.Hash.Hex()).
		Int("attempts", pending.Attempts).
		Uint64("gasUsed", receipt.GasUsed).
		Msg("트랜잭션 확인 완료")
	return receipt, nil
}

// Simulate는 정적 호출로 트랜잭션을 시뮬레이션합니다
func (e *Executor) Simulate(ctx context.Context, c chain.Call) error {
	to := c.To
	_, err := e.backend.CallContract(ctx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Value: c.Value,
		Data:  c.Data,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSimulationFailed, err)
	}
	return nil
}

// ExecuteBundle은 승인 트랜잭션을 먼저 실행한 뒤 배치 호출을 시뮬레이션하고 실행합니다
// 시뮬레이션이 실패하면 제출하지 않습니다
func (e *Executor) ExecuteBundle(ctx context.Context, router common.Address, b chain.Bundle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, approval := range b.Approvals {
		if _, err := e.execute(ctx, approval); err != nil {
			return fmt.Errorf("승인 실패 (%s): %w", approval.To.Hex(), err)
		}
	}

	if b.Empty() {
		return nil
	}

	batch, err := chain.EncodeBatch(router, b)
	if err != nil {
		return err
	}

	if err := e.Simulate(ctx, batch); err != nil {
		e.log.Error().Err(err).Str("router", router.Hex()).Int("calls", len(b.Calls)).Msg("배치 시뮬레이션 실패, 제출하지 않습니다")
		return err
	}

	if _, err := e.execute(ctx, batch); err != nil {
		return fmt.Errorf("배치 실행 실패: %w", err)
	}
	return nil
}

// Sleep은 ctx 취소를 존중하는 기본 대기 함수입니다
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
