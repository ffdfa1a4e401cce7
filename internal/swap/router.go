package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

// Quoter는 단일 풀 견적을 조회합니다
type Quoter interface {
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error)
}

// AllowanceReader는 ERC-20 allowance를 조회합니다
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// TxExecutor는 트랜잭션을 제출하고 확인까지 기다립니다
type TxExecutor interface {
	Execute(ctx context.Context, c chain.Call) (*types.Receipt, error)
}

// Config는 스왑 라우터 설정입니다
type Config struct {
	SwapRouter  common.Address
	Bridge      common.Address
	FeeTiers    []uint32
	SlippageBps int64
	Deadline    time.Duration
}

// Result는 실행된 스왑 결과입니다
type Result struct {
	Route    *domain.Route
	AmountIn *big.Int
	MinOut   *big.Int
	TxHash   common.Hash
}

// Router는 직접 경로 또는 브릿지 자산을 거치는 2단계 경로로 스왑합니다
type Router struct {
	quoter     Quoter
	allowances AllowanceReader
	exec       TxExecutor
	account    common.Address
	cfg        Config
	now        func() time.Time
	log        zerolog.Logger
}

// NewRouter는 새로운 Router를 생성합니다
func NewRouter(q Quoter, allowances AllowanceReader, exec TxExecutor, account common.Address, cfg Config) *Router {
	if len(cfg.FeeTiers) == 0 {
		cfg.FeeTiers = []uint32{3000}
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = time.Hour
	}
	return &Router{
		quoter:     q,
		allowances: allowances,
		exec:       exec,
		account:    account,
		cfg:        cfg,
		now:        time.Now,
		log:        logger.For("swap"),
	}
}

// FindRoute는 직접 풀을 먼저 찾고, 없으면 브릿지 자산을 거치는 경로를 찾습니다
// 직접 풀이 있으면 브릿지 경로는 조회하지 않습니다
func (r *Router) FindRoute(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*domain.Route, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, domain.ErrZeroAmount
	}

	fee, quote, err := r.bestFee(ctx, tokenIn, tokenOut, amount)
	if err == nil {
		return &domain.Route{
			Hops:   []domain.Hop{{TokenIn: tokenIn, TokenOut: tokenOut, Fee: fee}},
			MinOut: []*big.Int{r.minOut(quote)},
		}, nil
	}
	if !errors.Is(err, domain.ErrPoolNotFound) {
		return nil, err
	}

	r.log.Info().
		Str("tokenIn", tokenIn.Hex()).
		Str("tokenOut", tokenOut.Hex()).
		Str("bridge", r.cfg.Bridge.Hex()).
		Msg("직접 풀이 없습니다. 브릿지 경로를 찾습니다")

	if tokenIn == r.cfg.Bridge || tokenOut == r.cfg.Bridge || r.cfg.Bridge == (common.Address{}) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrNoRouteFound, tokenIn.Hex(), tokenOut.Hex())
	}

	feeA, quoteA, err := r.bestFee(ctx, tokenIn, r.cfg.Bridge, amount)
	if err != nil {
		return nil, r.noRoute(tokenIn, tokenOut, err)
	}
	minA := r.minOut(quoteA)

	feeB, quoteB, err := r.bestFee(ctx, r.cfg.Bridge, tokenOut, minA)
	if err != nil {
		return nil, r.noRoute(tokenIn, tokenOut, err)
	}

	return &domain.Route{
		Hops: []domain.Hop{
			{TokenIn: tokenIn, TokenOut: r.cfg.Bridge, Fee: feeA},
			{TokenIn: r.cfg.Bridge, TokenOut: tokenOut, Fee: feeB},
		},
		MinOut: []*big.Int{minA, r.minOut(quoteB)},
	}, nil
}

func (r *Router) noRoute(tokenIn, tokenOut common.Address, err error) error {
	if errors.Is(err, domain.ErrPoolNotFound) {
		return fmt.Errorf("%w: %s -> %s: %v", domain.ErrNoRouteFound, tokenIn.Hex(), tokenOut.Hex(), err)
	}
	return err
}

// bestFee는 설정된 수수료 구간 중 출력량이 가장 큰 풀을 찾습니다
func (r *Router) bestFee(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (uint32, *big.Int, error) {
	var (
		bestFee   uint32
		bestQuote *big.Int
		lastErr   error
	)
	for _, fee := range r.cfg.FeeTiers {
		quote, err := r.quoter.Quote(ctx, tokenIn, tokenOut, amount, fee)
		if err != nil {
			if !errors.Is(err, domain.ErrPoolNotFound) {
				return 0, nil, err
			}
			lastErr = err
			continue
		}
		if bestQuote == nil || quote.Cmp(bestQuote) > 0 {
			bestFee, bestQuote = fee, quote
		}
	}
	if bestQuote == nil {
		if lastErr == nil {
			lastErr = domain.ErrPoolNotFound
		}
		return 0, nil, lastErr
	}
	return bestFee, bestQuote, nil
}

// minOut은 quote * (10000 - slippage) / 10000을 반환합니다
func (r *Router) minOut(quote *big.Int) *big.Int {
	out := new(big.Int).Mul(quote, big.NewInt(domain.BasisPoints-r.cfg.SlippageBps))
	return out.Div(out, big.NewInt(domain.BasisPoints))
}

// Swap은 경로를 찾아 필요하면 승인한 뒤 스왑을 실행합니다
func (r *Router) Swap(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*Result, error) {
	route, err := r.FindRoute(ctx, tokenIn, tokenOut, amount)
	if err != nil {
		return nil, err
	}

	if err := r.approve(ctx, tokenIn, amount); err != nil {
		return nil, err
	}

	c, err := r.buildCall(route, amount)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("route", route.String()).
		Str("kind", route.Kind()).
		Str("amountIn", amount.String()).
		Str("minOut", route.AmountOutMinimum().String()).
		Msg("스왑 실행")

	receipt, err := r.exec.Execute(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("스왑 실패: %w", err)
	}

	return &Result{
		Route:    route,
		AmountIn: new(big.Int).Set(amount),
		MinOut:   route.AmountOutMinimum(),
		TxHash:   receipt.TxHash,
	}, nil
}

// approve는 allowance가 부족할 때만 승인 트랜잭션을 실행합니다
func (r *Router) approve(ctx context.Context, token common.Address, amount *big.Int) error {
	allowance, err := r.allowances.Allowance(ctx, token, r.account, r.cfg.SwapRouter)
	if err != nil {
		return fmt.Errorf("allowance 조회 실패: %w", err)
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	c, err := chain.ApproveCall(token, r.cfg.SwapRouter, amount)
	if err != nil {
		return err
	}
	if _, err := r.exec.Execute(ctx, c); err != nil {
		return fmt.Errorf("승인 실패: %w", err)
	}
	return nil
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

func (r *Router) buildCall(route *domain.Route, amount *big.Int) (chain.Call, error) {
	deadline := big.NewInt(r.now().Add(r.cfg.Deadline).Unix())

	var (
		data []byte
		err  error
	)
	if route.IsDirect() {
		hop := route.Hops[0]
		data, err = chain.SwapRouterABI.Pack("exactInputSingle", exactInputSingleParams{
			TokenIn:           hop.TokenIn,
			TokenOut:          hop.TokenOut,
			Fee:               big.NewInt(int64(hop.Fee)),
			Recipient:         r.account,
			Deadline:          deadline,
			AmountIn:          amount,
			AmountOutMinimum:  route.AmountOutMinimum(),
			SqrtPriceLimitX96: new(big.Int),
		})
	} else {
		data, err = chain.SwapRouterABI.Pack("exactInput", exactInputParams{
			Path:             EncodePath(*route),
			Recipient:        r.account,
			Deadline:         deadline,
			AmountIn:         amount,
			AmountOutMinimum: route.AmountOutMinimum(),
		})
	}
	if err != nil {
		return chain.Call{}, fmt.Errorf("스왑 인코딩 실패: %w", err)
	}
	return chain.Call{To: r.cfg.SwapRouter, Data: data}, nil
}
