package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/assist-by/equilibria/internal/chain"
)

// Adapter는 이자 발생 볼트 컨트랙트 어댑터입니다
type Adapter interface {
	ShareBalance(ctx context.Context, vault, account common.Address) (*big.Int, error)
	PreviewWithdraw(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error)
	Deposit(ctx context.Context, asset, vault common.Address, amount *big.Int, account common.Address, chainID int64) (chain.Bundle, error)
	Redeem(ctx context.Context, vault common.Address, shares *big.Int, account common.Address, chainID int64) (chain.Bundle, error)
}

// ERC4626은 배치 라우터 에이전트를 통해 ERC-4626 볼트에 입출금합니다
type ERC4626 struct {
	reader  chain.Reader
	tokens  *chain.TokenReader
	router  common.Address
	chainID int64
}

// NewERC4626은 새로운 ERC4626 어댑터를 생성합니다
func NewERC4626(r chain.Reader, router common.Address, chainID int64) *ERC4626 {
	return &ERC4626{
		reader:  r,
		tokens:  chain.NewTokenReader(r),
		router:  router,
		chainID: chainID,
	}
}

// ShareBalance는 볼트 지분 잔고를 조회합니다
func (v *ERC4626) ShareBalance(ctx context.Context, vault, account common.Address) (*big.Int, error) {
	out, err := chain.CallView(ctx, v.reader, vault, chain.VaultABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// PreviewWithdraw는 previewWithdraw(shares)를 조회합니다
func (v *ERC4626) PreviewWithdraw(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	out, err := chain.CallView(ctx, v.reader, vault, chain.VaultABI, "previewWithdraw", shares)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Asset은 볼트의 기초 자산 주소를 조회합니다
func (v *ERC4626) Asset(ctx context.Context, vault common.Address) (common.Address, error) {
	out, err := chain.CallView(ctx, v.reader, vault, chain.VaultABI, "asset")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// Deposit은 asset을 볼트에 예치하는 번들을 만듭니다
// 에이전트가 자산을 가져와 볼트에 예치하고 지분은 account가 받습니다
func (v *ERC4626) Deposit(ctx context.Context, asset, vault common.Address, amount *big.Int, account common.Address, chainID int64) (chain.Bundle, error) {
	if err := v.checkChain(chainID); err != nil {
		return chain.Bundle{}, err
	}

	agent, err := chain.AgentAddress(ctx, v.reader, v.router, account)
	if err != nil {
		return chain.Bundle{}, err
	}

	var b chain.Bundle
	if err := v.approveIfNeeded(ctx, &b, asset, account, agent, amount); err != nil {
		return chain.Bundle{}, err
	}

	pull, err := chain.TransferFromCall(asset, account, agent, amount)
	if err != nil {
		return chain.Bundle{}, err
	}
	approveVault, err := chain.ApproveCall(asset, vault, amount)
	if err != nil {
		return chain.Bundle{}, err
	}
	data, err := chain.VaultABI.Pack("deposit", amount, account)
	if err != nil {
		return chain.Bundle{}, fmt.Errorf("deposit 인코딩 실패: %w", err)
	}

	b.Calls = append(b.Calls, pull, approveVault, chain.Call{To: vault, Data: data})
	b.TokensReturn = append(b.TokensReturn, asset)
	return b, nil
}

// Redeem은 볼트 지분을 기초 자산으로 상환하는 번들을 만듭니다
func (v *ERC4626) Redeem(ctx context.Context, vault common.Address, shares *big.Int, account common.Address, chainID int64) (chain.Bundle, error) {
	if err := v.checkChain(chainID); err != nil {
		return chain.Bundle{}, err
	}

	asset, err := v.Asset(ctx, vault)
	if err != nil {
		return chain.Bundle{}, err
	}
	agent, err := chain.AgentAddress(ctx, v.reader, v.router, account)
	if err != nil {
		return chain.Bundle{}, err
	}

	var b chain.Bundle
	if err := v.approveIfNeeded(ctx, &b, vault, account, agent, shares); err != nil {
		return chain.Bundle{}, err
	}

	pull, err := chain.TransferFromCall(vault, account, agent, shares)
	if err != nil {
		return chain.Bundle{}, err
	}
	data, err := chain.VaultABI.Pack("redeem", shares, account, agent)
	if err != nil {
		return chain.Bundle{}, fmt.Errorf("redeem 인코딩 실패: %w", err)
	}

	b.Calls = append(b.Calls, pull, chain.Call{To: vault, Data: data})
	b.TokensReturn = append(b.TokensReturn, asset)
	return b, nil
}

func (v *ERC4626) approveIfNeeded(ctx context.Context, b *chain.Bundle, token, owner, spender common.Address, amount *big.Int) error {
	allowance, err := v.tokens.Allowance(ctx, token, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	approve, err := chain.ApproveCall(token, spender, amount)
	if err != nil {
		return err
	}
	b.Approvals = append(b.Approvals, approve)
	return nil
}

func (v *ERC4626) checkChain(chainID int64) error {
	if v.chainID != 0 && chainID != v.chainID {
		return fmt.Errorf("체인 ID 불일치: 요청 %d, 설정 %d", chainID, v.chainID)
	}
	return nil
}
