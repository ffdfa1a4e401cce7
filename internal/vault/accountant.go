package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

// DefaultFallbackBps는 전체 상환이 불가능할 때 사용하는 부분 상환 비율입니다
const DefaultFallbackBps = 6000

// Snapshot은 볼트 토큰별 직전 사이클의 이자입니다
type Snapshot map[common.Address]*big.Int

// Clone은 스냅샷의 복사본을 반환합니다
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

// BundleExecutor는 번들을 실행합니다
type BundleExecutor interface {
	ExecuteBundle(ctx context.Context, router common.Address, b chain.Bundle) error
}

// Accountant는 볼트 지분과 이자를 유효 잔고로 환산하고 상환/예치를 수행합니다
type Accountant struct {
	adapter     Adapter
	executor    BundleExecutor
	router      common.Address
	account     common.Address
	chainID     int64
	fallbackBps int64
	log         zerolog.Logger
}

// NewAccountant는 새로운 Accountant를 생성합니다
func NewAccountant(adapter Adapter, executor BundleExecutor, router, account common.Address, chainID, fallbackBps int64) *Accountant {
	if fallbackBps <= 0 || fallbackBps > domain.BasisPoints {
		fallbackBps = DefaultFallbackBps
	}
	return &Accountant{
		adapter:     adapter,
		executor:    executor,
		router:      router,
		account:     account,
		chainID:     chainID,
		fallbackBps: fallbackBps,
		log:         logger.For("vault"),
	}
}

// FallbackBps는 부분 상환 비율을 반환합니다
func (a *Accountant) FallbackBps() int64 {
	return a.fallbackBps
}

// Positions는 볼트에 연결된 토큰의 포지션을 읽고 다음 사이클용 스냅샷을 반환합니다
// 입력 스냅샷은 변경하지 않습니다
func (a *Accountant) Positions(ctx context.Context, tokens []domain.Token, snapshot Snapshot) (map[common.Address]*domain.VaultPosition, Snapshot, error) {
	positions := make(map[common.Address]*domain.VaultPosition)
	next := snapshot.Clone()

	for _, token := range tokens {
		if !token.HasVault() {
			continue
		}
		vault := token.Vault.Vault

		shares, err := a.adapter.ShareBalance(ctx, vault, a.account)
		if err != nil {
			return nil, snapshot, fmt.Errorf("%s 볼트 지분 조회 실패: %w", token.Symbol, err)
		}
		redeemable, err := a.adapter.PreviewWithdraw(ctx, vault, shares)
		if err != nil {
			return nil, snapshot, fmt.Errorf("%s previewWithdraw 조회 실패: %w", token.Symbol, err)
		}

		pos := &domain.VaultPosition{
			Vault:      vault,
			Underlying: token.Address,
			Shares:     shares,
			Redeemable: redeemable,
			Interest:   AccruedInterest(shares, redeemable),
		}
		if last, ok := snapshot[token.Address]; ok {
			pos.LastInterest = new(big.Int).Set(last)
		}
		positions[token.Address] = pos
		next[token.Address] = new(big.Int).Set(pos.Interest)

		a.log.Info().
			Str("token", token.Symbol).
			Str("shares", shares.String()).
			Str("interest", pos.Interest.String()).
			Str("delta", pos.InterestDelta().String()).
			Msg("볼트 포지션")
	}

	return positions, next, nil
}

// AccruedInterest는 shares - previewWithdraw(shares)를 계산합니다. 음수는 0으로 처리합니다
func AccruedInterest(shares, redeemable *big.Int) *big.Int {
	if shares == nil || redeemable == nil {
		return new(big.Int)
	}
	interest := new(big.Int).Sub(shares, redeemable)
	if interest.Sign() < 0 {
		return new(big.Int)
	}
	return interest
}

// EffectiveBalance는 지분 + 이자 + 지갑 잔고를 반환합니다
func EffectiveBalance(wallet *big.Int, pos *domain.VaultPosition) *big.Int {
	total := new(big.Int)
	if wallet != nil {
		total.Add(total, wallet)
	}
	if pos == nil {
		return total
	}
	if pos.Shares != nil {
		total.Add(total, pos.Shares)
	}
	if pos.Interest != nil {
		total.Add(total, pos.Interest)
	}
	return total
}

// Redemption은 지시 실행 전 상환 계획입니다
type Redemption struct {
	Redeem  *big.Int // 볼트에서 상환할 지분, 0이면 상환하지 않음
	Amount  *big.Int // 실제로 거래할 금액
	Partial bool     // 부분 비율로 줄어들었는지 여부
}

// Needed는 상환이 필요한지 확인합니다
func (r Redemption) Needed() bool {
	return r.Redeem != nil && r.Redeem.Sign() > 0
}

// PlanRedemption은 지갑 잔고가 부족할 때의 상환 정책을 계산합니다
//  1. 지갑 잔고로 충분하면 상환하지 않습니다
//  2. 볼트에 전체 금액이 있으면 전체를 상환합니다
//  3. 지갑 잔고가 부분 금액을 충당하면 상환 없이 부분 금액으로 거래합니다
//  4. 볼트에 부분 금액이 있으면 부분 금액을 상환합니다
func PlanRedemption(required, wallet, vaultShares *big.Int, fallbackBps int64) (Redemption, error) {
	if required == nil || required.Sign() <= 0 {
		return Redemption{}, domain.ErrZeroAmount
	}
	if wallet == nil {
		wallet = new(big.Int)
	}
	if vaultShares == nil {
		vaultShares = new(big.Int)
	}

	if wallet.Cmp(required) >= 0 {
		return Redemption{Redeem: new(big.Int), Amount: new(big.Int).Set(required)}, nil
	}
	if vaultShares.Cmp(required) >= 0 {
		return Redemption{Redeem: new(big.Int).Set(required), Amount: new(big.Int).Set(required)}, nil
	}

	reduced := new(big.Int).Mul(required, big.NewInt(fallbackBps))
	reduced.Div(reduced, big.NewInt(domain.BasisPoints))
	if reduced.Sign() <= 0 {
		return Redemption{}, domain.ErrZeroAmount
	}

	if wallet.Cmp(reduced) >= 0 {
		return Redemption{Redeem: new(big.Int), Amount: reduced, Partial: true}, nil
	}
	if vaultShares.Cmp(reduced) >= 0 {
		return Redemption{Redeem: new(big.Int).Set(reduced), Amount: reduced, Partial: true}, nil
	}

	return Redemption{}, fmt.Errorf("%w: 필요 %s, 지갑 %s, 볼트 %s", domain.ErrInsufficientBalance, required, wallet, vaultShares)
}

// Redeem은 토큰 볼트에서 shares만큼 상환합니다
func (a *Accountant) Redeem(ctx context.Context, token domain.Token, shares *big.Int) error {
	if !token.HasVault() {
		return fmt.Errorf("%s 볼트가 없습니다", token.Symbol)
	}
	if shares == nil || shares.Sign() <= 0 {
		return domain.ErrZeroAmount
	}

	b, err := a.adapter.Redeem(ctx, token.Vault.Vault, shares, a.account, a.chainID)
	if err != nil {
		return fmt.Errorf("%s 상환 번들 생성 실패: %w", token.Symbol, err)
	}
	if err := a.executor.ExecuteBundle(ctx, a.router, b); err != nil {
		return fmt.Errorf("%s 상환 실패: %w", token.Symbol, err)
	}

	a.log.Info().Str("token", token.Symbol).Str("shares", shares.String()).Msg("볼트 상환 완료")
	return nil
}

// Deposit은 토큰 잔고를 볼트에 예치합니다
func (a *Accountant) Deposit(ctx context.Context, token domain.Token, amount *big.Int) error {
	if !token.HasVault() {
		return fmt.Errorf("%s 볼트가 없습니다", token.Symbol)
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrZeroAmount
	}

	b, err := a.adapter.Deposit(ctx, token.Address, token.Vault.Vault, amount, a.account, a.chainID)
	if err != nil {
		return fmt.Errorf("%s 예치 번들 생성 실패: %w", token.Symbol, err)
	}
	if err := a.executor.ExecuteBundle(ctx, a.router, b); err != nil {
		return fmt.Errorf("%s 예치 실패: %w", token.Symbol, err)
	}

	a.log.Info().Str("token", token.Symbol).Str("amount", amount.String()).Msg("볼트 예치 완료")
	return nil
}
