package planner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
	"github.com/assist-by/equilibria/internal/valuation"
)

// Plan은 한 사이클의 매도/매수 지시 목록입니다
type Plan struct {
	Sells   []domain.DriftInstruction
	Buys    []domain.DriftInstruction
	Current map[common.Address]int64 // 토큰별 현재 비중 (bp)
}

// Empty는 실행할 지시가 없는지 확인합니다
func (p *Plan) Empty() bool {
	return p == nil || (len(p.Sells) == 0 && len(p.Buys) == 0)
}

// Has는 토큰에 대한 지시가 있는지 확인합니다
func (p *Plan) Has(token common.Address) bool {
	if p == nil {
		return false
	}
	for _, in := range p.Sells {
		if in.Token.Address == token {
			return true
		}
	}
	for _, in := range p.Buys {
		if in.Token.Address == token {
			return true
		}
	}
	return false
}

// Instructions는 매도 지시 뒤에 매수 지시를 이어 반환합니다
func (p *Plan) Instructions() []domain.DriftInstruction {
	if p == nil {
		return nil
	}
	out := make([]domain.DriftInstruction, 0, len(p.Sells)+len(p.Buys))
	out = append(out, p.Sells...)
	return append(out, p.Buys...)
}

// Planner는 현재 비중과 목표 비중을 비교해 리밸런싱 지시를 만듭니다
type Planner struct {
	reference domain.Token
	limit     int64
	log       zerolog.Logger
}

// New는 새로운 Planner를 생성합니다. limit은 bp 단위 허용 오차입니다
func New(reference domain.Token, limit int64) *Planner {
	return &Planner{
		reference: reference,
		limit:     limit,
		log:       logger.For("planner"),
	}
}

// Plan은 비중 차이가 limit을 초과하는 토큰에 대해 지시를 생성합니다
// 기준통화 토큰은 거래하지 않으며 해당 토큰만 건너뜁니다
func (p *Planner) Plan(val *domain.Valuation, tokens []domain.Token, target domain.AllocationTarget) (*Plan, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := target.Covers(tokens); err != nil {
		return nil, err
	}

	plan := &Plan{Current: make(map[common.Address]int64, len(tokens))}
	if val == nil || val.Total == nil || val.Total.Sign() <= 0 {
		p.log.Warn().Msg("포트폴리오 총 가치가 0입니다. 리밸런싱을 건너뜁니다")
		return plan, nil
	}

	bps := big.NewInt(domain.BasisPoints)
	for _, token := range tokens {
		value := val.ValueOf(token.Address)
		current := new(big.Int).Mul(value, bps)
		current.Div(current, val.Total)
		plan.Current[token.Address] = current.Int64()

		desired := target[token.Address]
		diff := desired - current.Int64()
		abs := diff
		if abs < 0 {
			abs = -abs
		}

		p.log.Debug().
			Str("token", token.Symbol).
			Int64("current", current.Int64()).
			Int64("desired", desired).
			Int64("diff", diff).
			Msg("비중 비교")

		if abs <= p.limit {
			continue
		}
		if token.Address == p.reference.Address {
			p.log.Info().Str("token", token.Symbol).Int64("diff", diff).Msg("기준통화는 거래하지 않습니다")
			continue
		}

		rebalance := new(big.Int).Mul(val.Total, big.NewInt(abs))
		rebalance.Div(rebalance, bps)

		in := domain.DriftInstruction{
			Token:            token,
			CurrentBps:       current.Int64(),
			TargetBps:        desired,
			ValueToRebalance: rebalance,
		}

		if diff < 0 {
			in.Direction = domain.Sell
			price := val.Values[token.Address].Price
			amount, err := valuation.TokenAmount(rebalance, token.Decimals, price)
			if err != nil {
				return nil, fmt.Errorf("%s 매도 수량 계산 실패: %w", token.Symbol, err)
			}
			in.Amount = amount
			plan.Sells = append(plan.Sells, in)
		} else {
			in.Direction = domain.Buy
			in.Amount = valuation.ScaleFrom18(rebalance, p.reference.Decimals)
			plan.Buys = append(plan.Buys, in)
		}

		p.log.Info().
			Str("token", token.Symbol).
			Str("direction", string(in.Direction)).
			Str("value", domain.ToDisplay(rebalance, domain.ValueDecimals).StringFixed(2)).
			Str("amount", in.Amount.String()).
			Msg("리밸런싱 지시 생성")
	}

	return plan, nil
}
