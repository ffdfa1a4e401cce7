package rebalance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/executor"
	"github.com/assist-by/equilibria/internal/logger"
	"github.com/assist-by/equilibria/internal/notification"
	"github.com/assist-by/equilibria/internal/signal"
	"github.com/assist-by/equilibria/internal/valuation"
	"github.com/assist-by/equilibria/internal/vault"
)

// Config는 오케스트레이터 설정입니다
type Config struct {
	Account           common.Address
	Reference         common.Address
	Tokens            []common.Address
	Vaults            map[common.Address]common.Address // 토큰 → 볼트
	TechnicalAnalysis bool                              // 모멘텀 필터 사용 여부
	SellCooldown      time.Duration
	BuyCooldown       time.Duration
	DryRun            bool
}

// Deps는 오케스트레이터가 사용하는 구성 요소입니다
// Recharger, Momentum, Recorder, Notifier, Observer는 nil일 수 있습니다
type Deps struct {
	Balances   BalanceReader
	Accountant VaultAccountant
	Valuer     Valuer
	Planner    Planner
	Swapper    Swapper
	Selector   WeightSelector
	Recharger  FeeRecharger
	Momentum   signal.MomentumSignal
	Recorder   Recorder
	Notifier   notification.Notifier
	Observer   Observer
}

// Orchestrator는 리밸런싱 사이클 하나를 순서대로 실행합니다
// FeeRecharge → Valuation → DriftPlan → (Sell → Buy → VaultDeposit)
type Orchestrator struct {
	cfg   Config
	deps  Deps
	sleep executor.SleepFunc
	now   func() time.Time
	log   zerolog.Logger
}

// Option은 오케스트레이터 생성 옵션입니다
type Option func(*Orchestrator)

// WithSleep은 지시 사이 대기 함수를 교체합니다
func WithSleep(fn executor.SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = fn
	}
}

// WithClock은 현재 시간 함수를 교체합니다
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New는 새로운 Orchestrator를 생성합니다
func New(cfg Config, deps Deps, opts ...Option) *Orchestrator {
	if cfg.SellCooldown <= 0 {
		cfg.SellCooldown = 10 * time.Second
	}
	if cfg.BuyCooldown <= 0 {
		cfg.BuyCooldown = 5 * time.Second
	}
	o := &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		sleep: executor.Sleep,
		now:   time.Now,
		log:   logger.For("rebalance"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// cycle은 한 사이클 동안의 상태입니다
type cycle struct {
	report    *Report
	tokens    []domain.Token
	reference domain.Token
	positions map[common.Address]*domain.VaultPosition
	shares    map[common.Address]*big.Int // 사이클 중 상환으로 줄어드는 지분
	log       zerolog.Logger
}

// RunCycle은 사이클 하나를 실행합니다
// 이자 스냅샷은 평가가 성공했을 때만 갱신된 값을 반환하고, 실패하면 입력을 그대로 반환합니다
func (o *Orchestrator) RunCycle(ctx context.Context, snapshot vault.Snapshot) (*Report, vault.Snapshot, error) {
	c := &cycle{
		report: &Report{
			CycleID:   uuid.New(),
			StartedAt: o.now(),
		},
	}
	c.log = o.log.With().Str("cycle", c.report.CycleID.String()).Logger()
	c.log.Info().Msg("리밸런싱 사이클 시작")

	next, err := o.run(ctx, c, snapshot)
	if err != nil {
		c.report.State = StateAborted
		c.report.Err = err
		next = snapshot
		// 가격/비중 에러 외의 중단은 RPC 등 외부 장애입니다
		c.log.Error().Err(err).Bool("external", !domain.AbortsCycle(err)).Msg("사이클 중단")
		o.notifyError(fmt.Errorf("사이클 %s 중단: %w", c.report.CycleID, err))
	}

	c.report.FinishedAt = o.now()
	o.finish(ctx, c)
	return c.report, next, err
}

func (o *Orchestrator) run(ctx context.Context, c *cycle, snapshot vault.Snapshot) (vault.Snapshot, error) {
	// FeeRecharge
	if o.deps.Recharger != nil && !o.cfg.DryRun {
		if err := o.deps.Recharger.Recharge(ctx); err != nil {
			c.log.Warn().Err(err).Msg("가스비 충전 실패")
		}
	}

	sel, err := o.deps.Selector.Select(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("신호 조회 실패, 직전 비중을 사용합니다")
	}
	if sel.Weights == nil {
		return snapshot, fmt.Errorf("%w: 선택된 비중이 없습니다", domain.ErrAllocationMismatch)
	}
	c.report.Selection = sel

	// Valuation
	if err := o.loadTokens(ctx, c); err != nil {
		return snapshot, err
	}

	holdings := make([]valuation.Holding, 0, len(c.tokens))
	wallets := make(map[common.Address]*big.Int, len(c.tokens))
	for _, t := range c.tokens {
		bal, err := o.deps.Balances.BalanceOf(ctx, t.Address, o.cfg.Account)
		if err != nil {
			return snapshot, fmt.Errorf("%s 잔고 조회 실패: %w", t.Symbol, err)
		}
		wallets[t.Address] = bal
	}

	positions, next, err := o.deps.Accountant.Positions(ctx, c.tokens, snapshot)
	if err != nil {
		return snapshot, fmt.Errorf("볼트 포지션 조회 실패: %w", err)
	}
	c.positions = positions
	c.shares = make(map[common.Address]*big.Int, len(positions))
	for addr, pos := range positions {
		c.shares[addr] = new(big.Int).Set(pos.Shares)
	}

	for _, t := range c.tokens {
		holdings = append(holdings, valuation.Holding{
			Token:   t,
			Balance: vault.EffectiveBalance(wallets[t.Address], positions[t.Address]),
		})
	}

	val, err := o.deps.Valuer.Value(ctx, holdings)
	if err != nil {
		return snapshot, fmt.Errorf("포트폴리오 평가 실패: %w", err)
	}
	c.report.Valuation = val
	o.observeInterest(c)

	// DriftPlan
	plan, err := o.deps.Planner.Plan(val, c.tokens, sel.Weights)
	if err != nil {
		return snapshot, fmt.Errorf("리밸런싱 계획 실패: %w", err)
	}
	c.report.Plan = plan

	c.log.Info().
		Str("total", domain.ToDisplay(val.Total, domain.ValueDecimals).String()).
		Bool("up", sel.Up).
		Int("sells", len(plan.Sells)).
		Int("buys", len(plan.Buys)).
		Msg("포트폴리오 평가 완료")

	switch {
	case plan.Empty():
		c.report.State = StateIdle
		c.log.Info().Msg("목표 비중 이내입니다")
		// 매매가 없는 사이클에도 지갑에 남은 볼트 자산은 예치합니다
		if !o.cfg.DryRun {
			o.depositPhase(ctx, c)
		}
		return next, nil
	case o.cfg.DryRun:
		c.report.State = StateDryRun
		for _, in := range plan.Instructions() {
			c.log.Info().
				Str("token", in.Token.Symbol).
				Str("direction", string(in.Direction)).
				Str("amount", in.Amount.String()).
				Msg("dry-run 지시")
		}
		return next, nil
	}

	c.report.State = StateRebalanced
	if err := o.sellPhase(ctx, c); err != nil {
		return next, err
	}
	if err := o.buyPhase(ctx, c); err != nil {
		return next, err
	}
	o.depositPhase(ctx, c)
	return next, nil
}

// loadTokens는 토큰 메타데이터를 매 사이클 다시 읽고 볼트를 연결합니다
func (o *Orchestrator) loadTokens(ctx context.Context, c *cycle) error {
	c.tokens = make([]domain.Token, 0, len(o.cfg.Tokens))
	for _, addr := range o.cfg.Tokens {
		t, err := o.deps.Balances.Token(ctx, addr)
		if err != nil {
			return fmt.Errorf("토큰 %s 조회 실패: %w", addr.Hex(), err)
		}
		if v, ok := o.cfg.Vaults[addr]; ok {
			t.Vault = &domain.VaultBinding{Vault: v}
		}
		if addr == o.cfg.Reference {
			c.reference = t
		}
		c.tokens = append(c.tokens, t)
	}
	if c.reference.Address != o.cfg.Reference {
		return fmt.Errorf("%w: 기준통화 %s 가 토큰 목록에 없습니다", domain.ErrAllocationMismatch, o.cfg.Reference.Hex())
	}
	return nil
}

func (o *Orchestrator) observeInterest(c *cycle) {
	for addr, pos := range c.positions {
		delta := pos.InterestDelta()
		symbol := addr.Hex()
		if tv, ok := c.report.Valuation.Values[addr]; ok {
			symbol = tv.Token.Symbol
		}
		c.log.Debug().
			Str("token", symbol).
			Str("interest", pos.Interest.String()).
			Str("delta", delta.String()).
			Msg("볼트 이자")
		if o.deps.Observer != nil {
			o.deps.Observer.ObserveInterest(symbol, delta)
		}
	}
}

// finish는 사이클 기록, 지표, 요약 알림을 남깁니다
func (o *Orchestrator) finish(ctx context.Context, c *cycle) {
	r := c.report
	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.Record(ctx, r.Record()); err != nil {
			c.log.Warn().Err(err).Msg("사이클 기록 실패")
		}
	}
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveCycle(string(r.State), r.Total())
	}
	if r.State == StateRebalanced && o.deps.Notifier != nil {
		if err := o.deps.Notifier.SendCycleSummary(r.Summary()); err != nil {
			c.log.Warn().Err(err).Msg("요약 알림 전송 실패")
		}
	}

	c.log.Info().
		Str("state", string(r.State)).
		Int("executed", r.Count(StatusExecuted)).
		Int("failed", r.Count(StatusFailed)).
		Dur("elapsed", r.FinishedAt.Sub(r.StartedAt)).
		Msg("리밸런싱 사이클 종료")
}

// record는 지시 결과를 보고서에 추가하고 에러를 분류합니다
func (o *Orchestrator) record(c *cycle, out Outcome) {
	if out.Err != nil {
		out.Err = domain.NewInstructionError(out.Token.Symbol, out.Op, out.Err)
		ev := c.log.Error()
		switch {
		case errors.Is(out.Err, domain.ErrZeroAmount):
			out.Status = StatusSkipped
			ev = c.log.Debug()
		case errors.Is(out.Err, domain.ErrInsufficientBalance):
			out.Status = StatusSkipped
			ev = c.log.Warn()
		case errors.Is(out.Err, domain.ErrBroadcastTimeout):
			out.Status = StatusFailed
			ev = c.log.Error().Bool("manual_inspection", true)
		default:
			out.Status = StatusFailed
		}
		ev.Err(out.Err).Str("token", out.Token.Symbol).Str("op", out.Op).Msg("지시 처리 실패")
		if out.Status == StatusFailed {
			o.notifyError(out.Err)
		}
	}

	c.report.Outcomes = append(c.report.Outcomes, out)
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveInstruction(out.Op, out.Status)
	}
}

func (o *Orchestrator) notifyError(err error) {
	if o.deps.Notifier == nil {
		return
	}
	if nerr := o.deps.Notifier.SendError(err); nerr != nil {
		o.log.Warn().Err(nerr).Msg("에러 알림 전송 실패")
	}
}
