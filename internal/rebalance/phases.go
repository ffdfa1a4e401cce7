package rebalance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/notification"
	"github.com/assist-by/equilibria/internal/vault"
)

// sellPhase는 매도 지시를 순서대로 실행합니다
// 지시 하나의 실패는 기록만 하고 다음 지시로 넘어갑니다
func (o *Orchestrator) sellPhase(ctx context.Context, c *cycle) error {
	for i := range c.report.Plan.Sells {
		in := c.report.Plan.Sells[i]
		if !o.passesGate(ctx, c, &in) {
			continue
		}

		out := o.trade(ctx, c, &in, in.Token, c.reference)
		o.record(c, out)
		if out.Status == StatusExecuted {
			if err := o.cooldown(ctx, o.cfg.SellCooldown); err != nil {
				return err
			}
		}
	}
	return nil
}

// buyPhase는 기준통화로 매수 지시를 실행합니다
func (o *Orchestrator) buyPhase(ctx context.Context, c *cycle) error {
	for i := range c.report.Plan.Buys {
		in := c.report.Plan.Buys[i]
		if !o.passesGate(ctx, c, &in) {
			continue
		}

		out := o.trade(ctx, c, &in, c.reference, in.Token)
		o.record(c, out)
		if out.Status == StatusExecuted {
			if err := o.cooldown(ctx, o.cfg.BuyCooldown); err != nil {
				return err
			}
		}
	}
	return nil
}

// passesGate는 모멘텀 필터를 확인합니다
// 매도는 과매수, 매수는 과매도일 때만 진행합니다
func (o *Orchestrator) passesGate(ctx context.Context, c *cycle, in *domain.DriftInstruction) bool {
	if !o.cfg.TechnicalAnalysis || o.deps.Momentum == nil {
		return true
	}

	op := opFor(in.Direction)
	m, err := o.deps.Momentum.Momentum(ctx, in.Token)
	if err != nil {
		o.record(c, Outcome{Token: in.Token, Op: op, Instruction: in, Amount: in.Amount,
			Err: fmt.Errorf("모멘텀 조회 실패: %w", err)})
		return false
	}

	pass := m.Overbought
	if in.Direction == domain.Buy {
		pass = m.Oversold
	}
	if !pass {
		c.log.Info().
			Str("token", in.Token.Symbol).
			Str("op", op).
			Float64("momentum", m.Value).
			Msg("모멘텀 조건 미충족으로 건너뜁니다")
		o.record(c, Outcome{Token: in.Token, Op: op, Instruction: in, Amount: in.Amount, Status: StatusGated})
	}
	return pass
}

// trade는 필요한 만큼 볼트에서 상환한 뒤 from → to 스왑을 실행합니다
// from은 지갑 잔고와 볼트 지분을 확인할 토큰입니다
func (o *Orchestrator) trade(ctx context.Context, c *cycle, in *domain.DriftInstruction, from, to domain.Token) Outcome {
	out := Outcome{Token: in.Token, Op: opFor(in.Direction), Instruction: in, Amount: in.Amount}

	wallet, err := o.deps.Balances.Balance(ctx, from, o.cfg.Account)
	if err != nil {
		out.Err = fmt.Errorf("%s 잔고 조회 실패: %w", from.Symbol, err)
		return out
	}

	shares := c.shares[from.Address]
	red, err := vault.PlanRedemption(in.Amount, wallet.Raw, shares, o.deps.Accountant.FallbackBps())
	if err != nil {
		out.Err = err
		return out
	}
	out.Amount = red.Amount
	out.Partial = red.Partial

	if red.Needed() {
		if err := o.deps.Accountant.Redeem(ctx, from, red.Redeem); err != nil {
			out.Err = err
			return out
		}
		shares.Sub(shares, red.Redeem)
	}
	if red.Partial {
		c.log.Warn().
			Str("token", in.Token.Symbol).
			Str("required", in.Amount.String()).
			Str("amount", red.Amount.String()).
			Str("wallet", wallet.Display.String()).
			Msg("잔고 부족으로 부분 금액만 거래합니다")
	}

	res, err := o.deps.Swapper.Swap(ctx, from.Address, to.Address, red.Amount)
	if err != nil {
		out.Err = err
		return out
	}

	out.Status = StatusExecuted
	out.Route = res.Route.Kind()
	out.TxHash = res.TxHash
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveSwap(out.Route)
	}
	o.notifyTrade(c, out, from, to)
	return out
}

// depositPhase는 지시가 없는 기준통화 외 토큰의 지갑 잔고를 볼트에 예치합니다
func (o *Orchestrator) depositPhase(ctx context.Context, c *cycle) {
	for _, t := range c.tokens {
		if t.Address == c.reference.Address || !t.HasVault() || c.report.Plan.Has(t.Address) {
			continue
		}

		bal, err := o.deps.Balances.Balance(ctx, t, o.cfg.Account)
		if err != nil {
			o.record(c, Outcome{Token: t, Op: OpDeposit, Err: fmt.Errorf("잔고 조회 실패: %w", err)})
			continue
		}
		if bal.Raw.Sign() <= 0 {
			continue
		}

		c.log.Debug().Str("token", t.Symbol).Str("amount", bal.Display.String()).Msg("볼트 예치")
		out := Outcome{Token: t, Op: OpDeposit, Amount: new(big.Int).Set(bal.Raw)}
		if err := o.deps.Accountant.Deposit(ctx, t, bal.Raw); err != nil {
			out.Err = err
		} else {
			out.Status = StatusExecuted
		}
		o.record(c, out)
	}
}

func (o *Orchestrator) cooldown(ctx context.Context, d time.Duration) error {
	if err := o.sleep(ctx, d); err != nil {
		return fmt.Errorf("대기 중 취소: %w", err)
	}
	return nil
}

func (o *Orchestrator) notifyTrade(c *cycle, out Outcome, from, to domain.Token) {
	if o.deps.Notifier == nil {
		return
	}
	info := notification.TradeInfo{
		Token:     out.Token.Symbol,
		Direction: directionFor(out.Op),
		AmountIn:  domain.ToDisplay(out.Amount, from.Decimals).String(),
		TokenIn:   from.Symbol,
		TokenOut:  to.Symbol,
		Route:     out.Route,
		Partial:   out.Partial,
	}
	if out.TxHash != (common.Hash{}) {
		info.TxHash = out.TxHash.Hex()
	}
	if err := o.deps.Notifier.SendTradeInfo(info); err != nil {
		c.log.Warn().Err(err).Msg("거래 알림 전송 실패")
	}
}

func opFor(d domain.Direction) string {
	if d == domain.Buy {
		return OpBuy
	}
	return OpSell
}

func directionFor(op string) string {
	if op == OpBuy {
		return string(domain.Buy)
	}
	return string(domain.Sell)
}
