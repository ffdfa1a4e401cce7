package swap

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
)

var (
	usdc       = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	wmatic     = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	link       = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	account    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	swapRouter = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

type pair struct {
	in, out common.Address
	fee     uint32
}

type fakeQuoter struct {
	quotes map[pair]*big.Int
	calls  []pair
}

func (f *fakeQuoter) Quote(_ context.Context, in, out common.Address, _ *big.Int, fee uint32) (*big.Int, error) {
	p := pair{in, out, fee}
	f.calls = append(f.calls, p)
	q, ok := f.quotes[p]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	return q, nil
}

type fakeAllowance struct {
	allowance *big.Int
	calls     int
}

func (f *fakeAllowance) Allowance(context.Context, common.Address, common.Address, common.Address) (*big.Int, error) {
	f.calls++
	return f.allowance, nil
}

type fakeExec struct {
	calls []chain.Call
	err   error
}

func (f *fakeExec) Execute(_ context.Context, c chain.Call) (*types.Receipt, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{TxHash: common.HexToHash("0xabc"), Status: types.ReceiptStatusSuccessful}, nil
}

func newTestRouter(q Quoter, a AllowanceReader, e TxExecutor, tiers ...uint32) *Router {
	r := NewRouter(q, a, e, account, Config{
		SwapRouter:  swapRouter,
		Bridge:      wmatic,
		FeeTiers:    tiers,
		SlippageBps: 100,
	})
	r.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return r
}

func TestFindRouteDirectShortCircuit(t *testing.T) {
	q := &fakeQuoter{quotes: map[pair]*big.Int{
		{link, usdc, 3000}:   big.NewInt(1000),
		{link, wmatic, 3000}: big.NewInt(5),
	}}
	r := newTestRouter(q, nil, nil)

	route, err := r.FindRoute(context.Background(), link, usdc, big.NewInt(10))
	require.NoError(t, err)

	assert.True(t, route.IsDirect())
	assert.Equal(t, uint32(3000), route.Hops[0].Fee)
	assert.Equal(t, int64(990), route.AmountOutMinimum().Int64())
	for _, c := range q.calls {
		assert.NotEqual(t, wmatic, c.out, "직접 풀이 있으면 브릿지를 조회하지 않아야 합니다")
		assert.NotEqual(t, wmatic, c.in)
	}
}

func TestFindRouteBestFeeTier(t *testing.T) {
	q := &fakeQuoter{quotes: map[pair]*big.Int{
		{link, usdc, 500}:   big.NewInt(900),
		{link, usdc, 3000}:  big.NewInt(1000),
		{link, usdc, 10000}: big.NewInt(950),
	}}
	r := newTestRouter(q, nil, nil, 500, 3000, 10000)

	route, err := r.FindRoute(context.Background(), link, usdc, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), route.Hops[0].Fee)
}

func TestFindRouteBridge(t *testing.T) {
	q := &fakeQuoter{quotes: map[pair]*big.Int{
		{link, wmatic, 3000}: big.NewInt(10_000),
		{wmatic, usdc, 500}:  big.NewInt(2_000),
	}}
	r := newTestRouter(q, nil, nil, 500, 3000)

	route, err := r.FindRoute(context.Background(), link, usdc, big.NewInt(100))
	require.NoError(t, err)

	require.Len(t, route.Hops, 2)
	assert.Equal(t, domain.Hop{TokenIn: link, TokenOut: wmatic, Fee: 3000}, route.Hops[0])
	assert.Equal(t, domain.Hop{TokenIn: wmatic, TokenOut: usdc, Fee: 500}, route.Hops[1])
	assert.Equal(t, int64(9_900), route.MinOut[0].Int64())
	assert.Equal(t, int64(1_980), route.MinOut[1].Int64())
	assert.Equal(t, "bridge", route.Kind())

	path := EncodePath(*route)
	require.Len(t, path, 66)
	assert.Equal(t, link.Bytes(), path[0:20])
	assert.Equal(t, []byte{0x00, 0x0b, 0xb8}, path[20:23])
	assert.Equal(t, wmatic.Bytes(), path[23:43])
	assert.Equal(t, []byte{0x00, 0x01, 0xf4}, path[43:46])
	assert.Equal(t, usdc.Bytes(), path[46:66])
}

func TestFindRouteNoRoute(t *testing.T) {
	q := &fakeQuoter{quotes: map[pair]*big.Int{
		{link, wmatic, 3000}: big.NewInt(10_000),
	}}
	r := newTestRouter(q, nil, nil)

	_, err := r.FindRoute(context.Background(), link, usdc, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrNoRouteFound)

	_, err = r.FindRoute(context.Background(), wmatic, usdc, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrNoRouteFound)
}

func TestSwapZeroAmount(t *testing.T) {
	q := &fakeQuoter{}
	a := &fakeAllowance{allowance: big.NewInt(0)}
	e := &fakeExec{}
	r := newTestRouter(q, a, e)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		_, err := r.Swap(context.Background(), link, usdc, amount)
		assert.ErrorIs(t, err, domain.ErrZeroAmount)
	}
	assert.Empty(t, q.calls)
	assert.Zero(t, a.calls)
	assert.Empty(t, e.calls)
}

func TestSwapDirect(t *testing.T) {
	q := &fakeQuoter{quotes: map[pair]*big.Int{{link, usdc, 3000}: big.NewInt(1000)}}

	t.Run("승인 필요", func(t *testing.T) {
		e := &fakeExec{}
		r := newTestRouter(q, &fakeAllowance{allowance: big.NewInt(0)}, e)

		res, err := r.Swap(context.Background(), link, usdc, big.NewInt(10))
		require.NoError(t, err)
		require.Len(t, e.calls, 2)
		assert.Equal(t, link, e.calls[0].To)
		assert.Equal(t, chain.ERC20ABI.Methods["approve"].ID, e.calls[0].Data[:4])
		assert.Equal(t, swapRouter, e.calls[1].To)
		assert.Equal(t, chain.SwapRouterABI.Methods["exactInputSingle"].ID, e.calls[1].Data[:4])
		assert.Equal(t, int64(990), res.MinOut.Int64())
		assert.Equal(t, common.HexToHash("0xabc"), res.TxHash)
	})

	t.Run("승인 생략", func(t *testing.T) {
		e := &fakeExec{}
		r := newTestRouter(q, &fakeAllowance{allowance: big.NewInt(10)}, e)

		_, err := r.Swap(context.Background(), link, usdc, big.NewInt(10))
		require.NoError(t, err)
		require.Len(t, e.calls, 1)
	})

	t.Run("실행 실패", func(t *testing.T) {
		e := &fakeExec{err: domain.ErrBroadcastTimeout}
		r := newTestRouter(q, &fakeAllowance{allowance: big.NewInt(10)}, e)

		_, err := r.Swap(context.Background(), link, usdc, big.NewInt(10))
		assert.True(t, errors.Is(err, domain.ErrBroadcastTimeout))
	})
}

func TestSwapBridgeEncodesExactInput(t *testing.T) {
	q := &fakeQuoter{quotes: map[pair]*big.Int{
		{link, wmatic, 3000}: big.NewInt(10_000),
		{wmatic, usdc, 3000}: big.NewInt(2_000),
	}}
	e := &fakeExec{}
	r := newTestRouter(q, &fakeAllowance{allowance: big.NewInt(1_000)}, e)

	_, err := r.Swap(context.Background(), link, usdc, big.NewInt(100))
	require.NoError(t, err)
	require.Len(t, e.calls, 1)

	method := chain.SwapRouterABI.Methods["exactInput"]
	assert.Equal(t, method.ID, e.calls[0].Data[:4])

	args, err := method.Inputs.Unpack(e.calls[0].Data[4:])
	require.NoError(t, err)
	params := *abi.ConvertType(args[0], new(exactInputParams)).(*exactInputParams)
	assert.Len(t, params.Path, 66)
	assert.Equal(t, account, params.Recipient)
	assert.Equal(t, int64(1_700_000_000+3600), params.Deadline.Int64())
	assert.Equal(t, int64(1_980), params.AmountOutMinimum.Int64())
}
