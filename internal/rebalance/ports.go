package rebalance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/journal"
	"github.com/assist-by/equilibria/internal/planner"
	"github.com/assist-by/equilibria/internal/signal"
	"github.com/assist-by/equilibria/internal/swap"
	"github.com/assist-by/equilibria/internal/valuation"
	"github.com/assist-by/equilibria/internal/vault"
)

// BalanceReader는 토큰 메타데이터와 잔고를 조회합니다
type BalanceReader interface {
	Token(ctx context.Context, address common.Address) (domain.Token, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Balance(ctx context.Context, token domain.Token, account common.Address) (domain.Balance, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// VaultAccountant는 볼트 포지션과 상환/예치를 담당합니다
type VaultAccountant interface {
	Positions(ctx context.Context, tokens []domain.Token, snapshot vault.Snapshot) (map[common.Address]*domain.VaultPosition, vault.Snapshot, error)
	Redeem(ctx context.Context, token domain.Token, shares *big.Int) error
	Deposit(ctx context.Context, token domain.Token, amount *big.Int) error
	FallbackBps() int64
}

// Valuer는 보유 자산의 기준통화 가치를 계산합니다
type Valuer interface {
	Value(ctx context.Context, holdings []valuation.Holding) (*domain.Valuation, error)
}

// Planner는 목표 비중과의 차이로 매매 지시를 만듭니다
type Planner interface {
	Plan(val *domain.Valuation, tokens []domain.Token, target domain.AllocationTarget) (*planner.Plan, error)
}

// Swapper는 경로를 찾아 스왑을 실행합니다
type Swapper interface {
	Swap(ctx context.Context, tokenIn, tokenOut common.Address, amount *big.Int) (*swap.Result, error)
}

// WeightSelector는 이번 사이클의 목표 비중을 고릅니다
type WeightSelector interface {
	Select(ctx context.Context) (signal.Selection, error)
}

// TxExecutor는 단일 트랜잭션을 실행합니다
type TxExecutor interface {
	Execute(ctx context.Context, c chain.Call) (*types.Receipt, error)
}

// FeeRecharger는 가스비용 네이티브 잔고를 조정합니다
type FeeRecharger interface {
	Recharge(ctx context.Context) error
}

// Recorder는 사이클 기록을 저장합니다
type Recorder interface {
	Record(ctx context.Context, rec journal.Record) error
}

// Observer는 사이클 지표를 수집합니다
type Observer interface {
	ObserveCycle(state string, total *big.Int)
	ObserveInstruction(op, status string)
	ObserveSwap(kind string)
	ObserveInterest(token string, delta *big.Int)
}

var (
	_ BalanceReader   = (*chain.TokenReader)(nil)
	_ VaultAccountant = (*vault.Accountant)(nil)
	_ Valuer          = (*valuation.Engine)(nil)
	_ Planner         = (*planner.Planner)(nil)
	_ Swapper         = (*swap.Router)(nil)
	_ WeightSelector  = (*signal.WeightSelector)(nil)
	_ FeeRecharger    = (*Recharger)(nil)
)
