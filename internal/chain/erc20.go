package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/assist-by/equilibria/internal/domain"
)

// TokenReader는 ERC-20 잔고와 메타데이터를 조회합니다
type TokenReader struct {
	reader Reader
}

// NewTokenReader는 새로운 TokenReader를 생성합니다
func NewTokenReader(r Reader) *TokenReader {
	return &TokenReader{reader: r}
}

// BalanceOf는 토큰 잔고를 조회합니다
func (t *TokenReader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := CallView(ctx, t.reader, token, ERC20ABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Allowance는 spender에게 허용된 금액을 조회합니다
func (t *TokenReader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := CallView(ctx, t.reader, token, ERC20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// NativeBalance는 네이티브 코인 잔고를 조회합니다
func (t *TokenReader) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := t.reader.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("네이티브 잔고 조회 실패: %w", err)
	}
	return bal, nil
}

// Token은 심볼과 소수점 자릿수를 조회해 domain.Token을 만듭니다
// 매 사이클 다시 조회합니다
func (t *TokenReader) Token(ctx context.Context, address common.Address) (domain.Token, error) {
	out, err := CallView(ctx, t.reader, address, ERC20ABI, "decimals")
	if err != nil {
		return domain.Token{}, err
	}
	decimals := out[0].(uint8)

	out, err = CallView(ctx, t.reader, address, ERC20ABI, "symbol")
	if err != nil {
		return domain.Token{}, err
	}

	return domain.Token{
		Address:  address,
		Symbol:   out[0].(string),
		Decimals: decimals,
	}, nil
}

// Balance는 토큰 잔고를 domain.Balance로 반환합니다
func (t *TokenReader) Balance(ctx context.Context, token domain.Token, account common.Address) (domain.Balance, error) {
	raw, err := t.BalanceOf(ctx, token.Address, account)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.NewBalance(token, raw), nil
}

// ApproveCall은 approve 호출을 만듭니다
func ApproveCall(token, spender common.Address, amount *big.Int) (Call, error) {
	data, err := ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		return Call{}, fmt.Errorf("approve 인코딩 실패: %w", err)
	}
	return Call{To: token, Data: data}, nil
}

// WrapCall은 네이티브 코인을 래핑하는 deposit 호출을 만듭니다
func WrapCall(wrapped common.Address, amount *big.Int) (Call, error) {
	data, err := WrappedNativeABI.Pack("deposit")
	if err != nil {
		return Call{}, fmt.Errorf("deposit 인코딩 실패: %w", err)
	}
	return Call{To: wrapped, Data: data, Value: new(big.Int).Set(amount)}, nil
}

// UnwrapCall은 래핑된 네이티브 코인을 푸는 withdraw 호출을 만듭니다
func UnwrapCall(wrapped common.Address, amount *big.Int) (Call, error) {
	data, err := WrappedNativeABI.Pack("withdraw", amount)
	if err != nil {
		return Call{}, fmt.Errorf("withdraw 인코딩 실패: %w", err)
	}
	return Call{To: wrapped, Data: data}, nil
}

// TransferFromCall은 transferFrom 호출을 만듭니다
func TransferFromCall(token, from, to common.Address, amount *big.Int) (Call, error) {
	data, err := ERC20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return Call{}, fmt.Errorf("transferFrom 인코딩 실패: %w", err)
	}
	return Call{To: token, Data: data}, nil
}
