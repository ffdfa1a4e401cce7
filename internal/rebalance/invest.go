package rebalance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/executor"
	"github.com/assist-by/equilibria/internal/logger"
)

// InvestConfig는 적립식 매수 설정입니다
type InvestConfig struct {
	Account   common.Address
	Reference domain.Token
	Tokens    []common.Address
	Target    domain.AllocationTarget
	Amount    decimal.Decimal // 회차당 투입할 기준통화 양. 0이면 지갑 잔고 전부
	Cooldown  time.Duration
}

// InvestLeg는 토큰 하나에 대한 매수 결과입니다
type InvestLeg struct {
	Token  common.Address
	Amount *big.Int
	Route  string
	TxHash common.Hash
	Err    error
}

// Investor는 기준통화를 목표 비중대로 나눠 각 토큰을 매수합니다
// 현재 보유 비중은 보지 않습니다
type Investor struct {
	balances  BalanceReader
	swapper   Swapper
	recharger FeeRecharger
	cfg       InvestConfig
	sleep     executor.SleepFunc
	log       zerolog.Logger
}

// NewInvestor는 새로운 Investor를 생성합니다. recharger는 nil일 수 있습니다
func NewInvestor(balances BalanceReader, swapper Swapper, recharger FeeRecharger, cfg InvestConfig) *Investor {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}
	return &Investor{
		balances:  balances,
		swapper:   swapper,
		recharger: recharger,
		cfg:       cfg,
		sleep:     executor.Sleep,
		log:       logger.For("invest"),
	}
}

// Execute는 스케줄러에서 한 회차를 실행합니다
func (i *Investor) Execute(ctx context.Context) error {
	legs, err := i.Invest(ctx)
	if err != nil {
		return err
	}

	var failed []error
	for _, leg := range legs {
		if leg.Err != nil {
			failed = append(failed, leg.Err)
		}
	}
	return errors.Join(failed...)
}

// Invest는 가스비를 맞춘 뒤 투입액을 비중대로 나눠 기준통화 → 토큰 스왑을 실행합니다
// 한 토큰의 실패는 그 토큰의 결과에만 남고 나머지는 계속 진행합니다
func (i *Investor) Invest(ctx context.Context) ([]InvestLeg, error) {
	if err := i.cfg.Target.Validate(); err != nil {
		return nil, err
	}

	if i.recharger != nil {
		if err := i.recharger.Recharge(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			i.log.Warn().Err(err).Msg("가스비 충전 실패, 매수는 계속합니다")
		}
	}

	ref := i.cfg.Reference
	wallet, err := i.balances.Balance(ctx, ref, i.cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("%s 잔고 조회 실패: %w", ref.Symbol, err)
	}

	amount := wallet.Raw
	if !i.cfg.Amount.IsZero() {
		amount = domain.FromDisplay(i.cfg.Amount, ref.Decimals)
		if amount.Cmp(wallet.Raw) > 0 {
			return nil, fmt.Errorf("%w: %s 필요 %s, 보유 %s", domain.ErrInsufficientBalance, ref.Symbol, i.cfg.Amount, wallet.Display)
		}
	}
	if amount.Sign() <= 0 {
		i.log.Info().Str("token", ref.Symbol).Msg("투입할 기준통화가 없습니다")
		return nil, nil
	}

	i.log.Info().
		Str("amount", domain.ToDisplay(amount, ref.Decimals).String()).
		Str("target", i.cfg.Target.String()).
		Msg("적립식 매수 시작")

	var legs []InvestLeg
	for _, token := range i.cfg.Tokens {
		if token == ref.Address {
			continue
		}
		share := new(big.Int).Mul(amount, big.NewInt(i.cfg.Target[token]))
		share.Quo(share, big.NewInt(domain.BasisPoints))
		if share.Sign() == 0 {
			continue
		}

		leg := InvestLeg{Token: token, Amount: share}
		res, err := i.swapper.Swap(ctx, ref.Address, token, share)
		if err != nil {
			leg.Err = fmt.Errorf("%s 매수 실패: %w", token.Hex(), err)
			i.log.Error().Err(err).Str("token", token.Hex()).Msg("매수 실패")
			legs = append(legs, leg)
			continue
		}
		leg.Route = res.Route.Kind()
		leg.TxHash = res.TxHash
		legs = append(legs, leg)

		i.log.Info().
			Str("token", token.Hex()).
			Str("amount", domain.ToDisplay(share, ref.Decimals).String()).
			Str("route", leg.Route).
			Msg("매수 완료")

		if err := i.sleep(ctx, i.cfg.Cooldown); err != nil {
			return legs, fmt.Errorf("대기 중 취소: %w", err)
		}
	}
	return legs, nil
}
