package rebalance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/journal"
	"github.com/assist-by/equilibria/internal/notification"
	"github.com/assist-by/equilibria/internal/signal"
	"github.com/assist-by/equilibria/internal/swap"
	"github.com/assist-by/equilibria/internal/vault"
)

var (
	account = common.HexToAddress("0x000000000000000000000000000000000000acc0")
	usdc    = domain.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000c1"), Symbol: "USDC", Decimals: 6}
	weth    = domain.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000e1"), Symbol: "WETH", Decimals: 18}
	wbtc    = domain.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000b1"), Symbol: "WBTC", Decimals: 8}
	wmatic  = common.HexToAddress("0x00000000000000000000000000000000000000f1")

	usdcVault = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	wbtcVault = common.HexToAddress("0x00000000000000000000000000000000000000a2")
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

type fakeBalances struct {
	tokens   map[common.Address]domain.Token
	balances map[common.Address]*big.Int
	native   *big.Int
	errs     map[common.Address]error
}

func newFakeBalances(tokens ...domain.Token) *fakeBalances {
	f := &fakeBalances{
		tokens:   make(map[common.Address]domain.Token),
		balances: make(map[common.Address]*big.Int),
		native:   new(big.Int),
		errs:     make(map[common.Address]error),
	}
	for _, t := range tokens {
		f.tokens[t.Address] = t
	}
	return f
}

func (f *fakeBalances) Token(_ context.Context, address common.Address) (domain.Token, error) {
	t, ok := f.tokens[address]
	if !ok {
		return domain.Token{}, fmt.Errorf("unknown token %s", address.Hex())
	}
	return t, nil
}

func (f *fakeBalances) BalanceOf(_ context.Context, token, _ common.Address) (*big.Int, error) {
	if err := f.errs[token]; err != nil {
		return nil, err
	}
	if b, ok := f.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *fakeBalances) Balance(ctx context.Context, token domain.Token, account common.Address) (domain.Balance, error) {
	raw, err := f.BalanceOf(ctx, token.Address, account)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.NewBalance(token, raw), nil
}

func (f *fakeBalances) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.native), nil
}

type redeemCall struct {
	token  string
	shares *big.Int
}

type fakeAccountant struct {
	positions map[common.Address]*domain.VaultPosition
	next      vault.Snapshot
	err       error
	redeems   []redeemCall
	deposits  []redeemCall
	redeemErr error
}

func (f *fakeAccountant) Positions(_ context.Context, _ []domain.Token, snapshot vault.Snapshot) (map[common.Address]*domain.VaultPosition, vault.Snapshot, error) {
	if f.err != nil {
		return nil, snapshot, f.err
	}
	next := f.next
	if next == nil {
		next = snapshot.Clone()
	}
	positions := make(map[common.Address]*domain.VaultPosition, len(f.positions))
	for k, v := range f.positions {
		cp := *v
		positions[k] = &cp
	}
	return positions, next, nil
}

func (f *fakeAccountant) Redeem(_ context.Context, token domain.Token, shares *big.Int) error {
	if f.redeemErr != nil {
		return f.redeemErr
	}
	f.redeems = append(f.redeems, redeemCall{token.Symbol, new(big.Int).Set(shares)})
	return nil
}

func (f *fakeAccountant) Deposit(_ context.Context, token domain.Token, amount *big.Int) error {
	f.deposits = append(f.deposits, redeemCall{token.Symbol, new(big.Int).Set(amount)})
	return nil
}

func (f *fakeAccountant) FallbackBps() int64 { return vault.DefaultFallbackBps }

type fakeOracle struct {
	prices map[common.Address]decimal.Decimal
}

func (f *fakeOracle) Price(_ context.Context, token domain.Token, _ int64) (decimal.Decimal, error) {
	p, ok := f.prices[token.Address]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrPriceUnavailable, token.Symbol)
	}
	return p, nil
}

type swapCall struct {
	in, out common.Address
	amount  *big.Int
}

type fakeSwapper struct {
	calls []swapCall
	errs  map[common.Address]error // tokenIn 또는 tokenOut 기준
	kind  string
}

func (f *fakeSwapper) Swap(_ context.Context, in, out common.Address, amount *big.Int) (*swap.Result, error) {
	if err := f.errs[in]; err != nil {
		return nil, err
	}
	if err := f.errs[out]; err != nil {
		return nil, err
	}
	f.calls = append(f.calls, swapCall{in, out, new(big.Int).Set(amount)})

	hops := []domain.Hop{{TokenIn: in, TokenOut: out, Fee: 3000}}
	if f.kind == "bridge" {
		hops = []domain.Hop{{TokenIn: in, TokenOut: wmatic, Fee: 3000}, {TokenIn: wmatic, TokenOut: out, Fee: 3000}}
	}
	return &swap.Result{
		Route:    &domain.Route{Hops: hops},
		AmountIn: amount,
		TxHash:   common.BigToHash(big.NewInt(int64(len(f.calls)))),
	}, nil
}

type fakeSelector struct {
	sel signal.Selection
	err error
}

func (f *fakeSelector) Select(context.Context) (signal.Selection, error) {
	return f.sel, f.err
}

type fakeMomentum struct {
	values map[common.Address]domain.Momentum
	err    error
}

func (f *fakeMomentum) Momentum(_ context.Context, token domain.Token) (domain.Momentum, error) {
	if f.err != nil {
		return domain.Momentum{}, f.err
	}
	return f.values[token.Address], nil
}

type fakeRecharger struct {
	calls int
	err   error
}

func (f *fakeRecharger) Recharge(context.Context) error {
	f.calls++
	return f.err
}

type fakeRecorder struct {
	records []journal.Record
}

func (f *fakeRecorder) Record(_ context.Context, rec journal.Record) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeNotifier struct {
	trades    []notification.TradeInfo
	errors    []error
	summaries []notification.CycleSummary
}

func (f *fakeNotifier) SendCycleSummary(s notification.CycleSummary) error {
	f.summaries = append(f.summaries, s)
	return nil
}

func (f *fakeNotifier) SendError(err error) error {
	f.errors = append(f.errors, err)
	return nil
}

func (f *fakeNotifier) SendInfo(string) error { return nil }

func (f *fakeNotifier) SendTradeInfo(info notification.TradeInfo) error {
	f.trades = append(f.trades, info)
	return nil
}

type fakeObserver struct {
	cycles       []string
	instructions map[string]int
	swaps        map[string]int
	interest     map[string]*big.Int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		instructions: make(map[string]int),
		swaps:        make(map[string]int),
		interest:     make(map[string]*big.Int),
	}
}

func (f *fakeObserver) ObserveCycle(state string, _ *big.Int) { f.cycles = append(f.cycles, state) }
func (f *fakeObserver) ObserveInstruction(op, status string) {
	f.instructions[op+"/"+status]++
}
func (f *fakeObserver) ObserveSwap(kind string) { f.swaps[kind]++ }
func (f *fakeObserver) ObserveInterest(token string, delta *big.Int) {
	f.interest[token] = delta
}

type fakeExec struct {
	calls []chain.Call
	err   error
}

func (f *fakeExec) Execute(_ context.Context, c chain.Call) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, c)
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return nil
}
