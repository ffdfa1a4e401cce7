package rebalance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

// FeeConfig는 가스비 충전 기준입니다
type FeeConfig struct {
	Account        common.Address
	WrappedNative  common.Address
	Reference      domain.Token
	Floor          decimal.Decimal // 네이티브 잔고 하한 (표시 단위)
	Ceiling        decimal.Decimal // 네이티브 잔고 상한 (표시 단위)
	TopUpReference decimal.Decimal // 래핑 네이티브가 부족할 때 스왑할 기준통화 양
}

// Recharger는 네이티브 잔고를 하한과 상한 사이로 유지합니다
type Recharger struct {
	balances BalanceReader
	swapper  Swapper
	exec     TxExecutor
	cfg      FeeConfig
	log      zerolog.Logger
}

// NewRecharger는 새로운 Recharger를 생성합니다
func NewRecharger(balances BalanceReader, swapper Swapper, exec TxExecutor, cfg FeeConfig) *Recharger {
	if cfg.TopUpReference.IsZero() {
		cfg.TopUpReference = decimal.NewFromInt(2)
	}
	return &Recharger{
		balances: balances,
		swapper:  swapper,
		exec:     exec,
		cfg:      cfg,
		log:      logger.For("fees"),
	}
}

// Recharge는 네이티브 잔고가 하한 미만이면 래핑 네이티브를 풀고,
// 상한을 넘으면 초과분을 래핑합니다
func (r *Recharger) Recharge(ctx context.Context) error {
	native, err := r.balances.NativeBalance(ctx, r.cfg.Account)
	if err != nil {
		return fmt.Errorf("네이티브 잔고 조회 실패: %w", err)
	}

	floor := domain.FromDisplay(r.cfg.Floor, domain.ValueDecimals)
	ceiling := domain.FromDisplay(r.cfg.Ceiling, domain.ValueDecimals)

	switch {
	case native.Cmp(floor) < 0:
		return r.topUp(ctx, native, floor)
	case native.Cmp(ceiling) > 0:
		excess := new(big.Int).Sub(native, ceiling)
		c, err := chain.WrapCall(r.cfg.WrappedNative, excess)
		if err != nil {
			return err
		}
		if _, err := r.exec.Execute(ctx, c); err != nil {
			return fmt.Errorf("초과 네이티브 래핑 실패: %w", err)
		}
		r.log.Info().Str("amount", domain.ToDisplay(excess, domain.ValueDecimals).String()).Msg("초과 네이티브 래핑 완료")
	}
	return nil
}

func (r *Recharger) topUp(ctx context.Context, native, floor *big.Int) error {
	wrapped, err := r.balances.BalanceOf(ctx, r.cfg.WrappedNative, r.cfg.Account)
	if err != nil {
		return fmt.Errorf("래핑 네이티브 잔고 조회 실패: %w", err)
	}
	if wrapped.Sign() == 0 {
		r.log.Warn().Str("native", native.String()).Msg("래핑 네이티브가 없어 가스비를 충전할 수 없습니다")
		return nil
	}

	if wrapped.Cmp(floor) < 0 {
		topUp := domain.FromDisplay(r.cfg.TopUpReference, r.cfg.Reference.Decimals)
		refBal, err := r.balances.BalanceOf(ctx, r.cfg.Reference.Address, r.cfg.Account)
		if err != nil {
			return fmt.Errorf("기준통화 잔고 조회 실패: %w", err)
		}
		if refBal.Cmp(topUp) > 0 {
			if _, err := r.swapper.Swap(ctx, r.cfg.Reference.Address, r.cfg.WrappedNative, topUp); err != nil {
				return fmt.Errorf("래핑 네이티브 구매 실패: %w", err)
			}
			if wrapped, err = r.balances.BalanceOf(ctx, r.cfg.WrappedNative, r.cfg.Account); err != nil {
				return fmt.Errorf("래핑 네이티브 잔고 조회 실패: %w", err)
			}
		}
	}

	amount := new(big.Int).Set(floor)
	if wrapped.Cmp(amount) < 0 {
		amount.Set(wrapped)
	}
	c, err := chain.UnwrapCall(r.cfg.WrappedNative, amount)
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, c); err != nil {
		return fmt.Errorf("래핑 네이티브 해제 실패: %w", err)
	}

	r.log.Info().Str("amount", domain.ToDisplay(amount, domain.ValueDecimals).String()).Msg("가스비 충전 완료")
	return nil
}
