package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdc   = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	weth   = "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"
	wmatic = "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"
	router = "0xE592427A0AEce92De3Edee1F18E0157C05861564"
	quoter = "0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	t.Setenv("TOKENS", usdc+","+weth)
	t.Setenv("REFERENCE_TOKEN", usdc)
	t.Setenv("WEIGHTS_UP", usdc+":3000,"+weth+":7000")
	t.Setenv("SWAP_ROUTER", router)
	t.Setenv("QUOTER", quoter)
	t.Setenv("BRIDGE_TOKEN", wmatic)
	t.Setenv("WRAPPED_NATIVE", wmatic)
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := load(missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.Portfolio.Limit)
	assert.Equal(t, int64(50), cfg.Swap.SlippageBps)
	assert.Equal(t, []uint32{3000}, cfg.Swap.FeeTiers)
	assert.Equal(t, time.Hour, cfg.Swap.Deadline)
	assert.Equal(t, 5*time.Second, cfg.Chain.ConfirmInterval)
	assert.Equal(t, 20, cfg.Chain.ConfirmAttempts)
	assert.Equal(t, 10*time.Second, cfg.Swap.SellCooldown)
	assert.Equal(t, 5*time.Second, cfg.Swap.BuyCooldown)
	assert.Equal(t, time.Hour, cfg.App.Interval)
	assert.Equal(t, int64(120), cfg.Chain.GasPriceMultiplierPct)
	assert.Equal(t, int64(6000), cfg.Vault.FallbackBps)
	assert.Equal(t, "2", cfg.Fees.Floor.String())
	assert.Equal(t, "3", cfg.Fees.Ceiling.String())

	up, down, err := cfg.Targets()
	require.NoError(t, err)
	assert.Equal(t, int64(7000), up[common.HexToAddress(weth)])
	assert.Equal(t, up, down)
	assert.Equal(t, []common.Address{common.HexToAddress(usdc), common.HexToAddress(weth)}, cfg.Addresses())
}

func TestLoadFromDotEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EQUILIBRIA_TEST_LIMIT_MARKER=1\nLIMIT=250\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("EQUILIBRIA_TEST_LIMIT_MARKER")
		os.Unsetenv("LIMIT")
	})

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(250), cfg.Portfolio.Limit)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"비중 합계 불일치", map[string]string{"WEIGHTS_UP": usdc + ":3000," + weth + ":6000"}},
		{"하락 비중 토큰 불일치", map[string]string{"WEIGHTS_DOWN": usdc + ":10000"}},
		{"기준통화가 토큰 목록에 없음", map[string]string{"REFERENCE_TOKEN": wmatic}},
		{"잘못된 주소", map[string]string{"SWAP_ROUTER": "router"}},
		{"슬리피지 범위", map[string]string{"SLIPPAGE_BPS": "10000"}},
		{"하한이 상한 이상", map[string]string{"NATIVE_FLOOR": "3", "NATIVE_CEILING": "3"}},
		{"볼트에 배치 라우터 필요", map[string]string{"VAULTS": usdc + ":" + wmatic}},
		{"잘못된 캔들 간격", map[string]string{"TREND_INTERVAL": "2d"}},
		{"알 수 없는 추세 지표", map[string]string{"TREND_INDICATOR": "sar"}},
		{"중복 토큰", map[string]string{"TOKENS": usdc + "," + usdc}},
		{"짧은 실행 간격", map[string]string{"INTERVAL": "30s"}},
		{"적립 비중 합계 불일치", map[string]string{"INVEST_WEIGHTS": usdc + ":1000," + weth + ":8000"}},
		{"음수 적립 금액", map[string]string{"INVEST_AMOUNT": "-5"}},
		{"짧은 적립 간격", map[string]string{"INVEST_INTERVAL": "10s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(missingEnv(t))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequired(t *testing.T) {
	setRequired(t)
	os.Unsetenv("RPC_URL")

	_, err := load(missingEnv(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC_URL")
}

func TestInvestTarget(t *testing.T) {
	tests := []struct {
		name    string
		weights string
		want    int64
	}{
		{"설정이 없으면 상승 비중 사용", "", 7000},
		{"별도 적립 비중", usdc + ":0," + weth + ":10000", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			if tt.weights != "" {
				t.Setenv("INVEST_WEIGHTS", tt.weights)
			}

			cfg, err := load(missingEnv(t))
			require.NoError(t, err)
			assert.Equal(t, 24*time.Hour, cfg.Invest.Interval)
			assert.True(t, cfg.Invest.Amount.IsZero())

			target, err := cfg.InvestTarget()
			require.NoError(t, err)
			assert.Equal(t, tt.want, target[common.HexToAddress(weth)])
		})
	}
}

func TestVaultMap(t *testing.T) {
	setRequired(t)
	t.Setenv("VAULTS", usdc+":"+wmatic)
	t.Setenv("BATCH_ROUTER", router)

	cfg, err := load(missingEnv(t))
	require.NoError(t, err)

	vaults, err := cfg.VaultMap()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(wmatic), vaults[common.HexToAddress(usdc)])
}
