package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/assist-by/equilibria/internal/domain"
)

// Quoter는 Uniswap V3 호환 quoter 컨트랙트 어댑터입니다
type Quoter struct {
	reader  Reader
	address common.Address
}

// NewQuoter는 새로운 Quoter를 생성합니다
func NewQuoter(r Reader, address common.Address) *Quoter {
	return &Quoter{reader: r, address: address}
}

// Quote는 단일 풀에서 amountIn에 대한 예상 출력량을 조회합니다
// 호출이 revert 되거나 출력량이 0이면 domain.ErrPoolNotFound를 반환합니다
// 전송 계층 에러는 그대로 감싸서 반환합니다
func (q *Quoter) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) (*big.Int, error) {
	out, err := CallView(ctx, q.reader, q.address, QuoterABI, "quoteExactInputSingle",
		tokenIn, tokenOut, big.NewInt(int64(fee)), amountIn, new(big.Int))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %s -> %s (fee %d): %v", domain.ErrPoolNotFound, tokenIn.Hex(), tokenOut.Hex(), fee, err)
		}
		return nil, fmt.Errorf("견적 조회 실패 %s -> %s (fee %d): %w", tokenIn.Hex(), tokenOut.Hex(), fee, err)
	}
	amountOut := out[0].(*big.Int)
	if amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s -> %s (fee %d) 출력량 0", domain.ErrPoolNotFound, tokenIn.Hex(), tokenOut.Hex(), fee)
	}
	return amountOut, nil
}

// isRevert는 노드가 실행 결과로 돌려준 revert 에러인지 판단합니다
// revert 데이터가 붙은 rpc.DataError 또는 "execution reverted" 메시지를 revert로 봅니다
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
