package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/assist-by/equilibria/internal/domain"
)

type Config struct {
	// 체인 및 서명자 설정
	Chain struct {
		RPCURL                string        `envconfig:"RPC_URL" required:"true"`
		PrivateKey            string        `envconfig:"PRIVATE_KEY" required:"true"`
		ChainID               int64         `envconfig:"CHAIN_ID" default:"137"`
		ConfirmInterval       time.Duration `envconfig:"CONFIRM_INTERVAL" default:"5s"`
		ConfirmAttempts       int           `envconfig:"CONFIRM_ATTEMPTS" default:"20"`
		GasPriceMultiplierPct int64         `envconfig:"GAS_PRICE_MULTIPLIER_PCT" default:"120"`
	}

	// 포트폴리오 설정
	Portfolio struct {
		Tokens      []string         `envconfig:"TOKENS" required:"true"`
		Reference   string           `envconfig:"REFERENCE_TOKEN" required:"true"`
		WeightsUp   map[string]int64 `envconfig:"WEIGHTS_UP" required:"true"`
		WeightsDown map[string]int64 `envconfig:"WEIGHTS_DOWN"`
		Limit       int64            `envconfig:"LIMIT" default:"100"`
	}

	// 스왑 설정
	Swap struct {
		Router       string        `envconfig:"SWAP_ROUTER" required:"true"`
		Quoter       string        `envconfig:"QUOTER" required:"true"`
		Bridge       string        `envconfig:"BRIDGE_TOKEN" required:"true"`
		FeeTiers     []uint32      `envconfig:"FEE_TIERS" default:"3000"`
		SlippageBps  int64         `envconfig:"SLIPPAGE_BPS" default:"50"`
		Deadline     time.Duration `envconfig:"SWAP_DEADLINE" default:"1h"`
		SellCooldown time.Duration `envconfig:"SELL_COOLDOWN" default:"10s"`
		BuyCooldown  time.Duration `envconfig:"BUY_COOLDOWN" default:"5s"`
	}

	// 볼트 설정 (토큰:볼트)
	Vault struct {
		Vaults      map[string]string `envconfig:"VAULTS"`
		BatchRouter string            `envconfig:"BATCH_ROUTER"`
		FallbackBps int64             `envconfig:"REDEEM_FALLBACK_BPS" default:"6000"`
	}

	// 가스비 충전 설정
	Fees struct {
		Enabled        bool            `envconfig:"FEE_RECHARGE" default:"true"`
		WrappedNative  string          `envconfig:"WRAPPED_NATIVE"`
		Floor          decimal.Decimal `envconfig:"NATIVE_FLOOR" default:"2"`
		Ceiling        decimal.Decimal `envconfig:"NATIVE_CEILING" default:"3"`
		TopUpReference decimal.Decimal `envconfig:"NATIVE_TOPUP_REFERENCE" default:"2"`
	}

	// 적립식 매수 설정 (-invest 모드)
	Invest struct {
		Amount   decimal.Decimal  `envconfig:"INVEST_AMOUNT" default:"0"`
		Interval time.Duration    `envconfig:"INVEST_INTERVAL" default:"24h"`
		Cooldown time.Duration    `envconfig:"INVEST_COOLDOWN" default:"10s"`
		Weights  map[string]int64 `envconfig:"INVEST_WEIGHTS"`
	}

	// 신호 설정
	Signal struct {
		TrendFollowing     bool                `envconfig:"TREND_FOLLOWING" default:"true"`
		TechnicalAnalysis  bool                `envconfig:"TECHNICAL_ANALYSIS" default:"false"`
		TrendIndicator     string              `envconfig:"TREND_INDICATOR" default:"kst"`
		TrendSymbol        string              `envconfig:"TREND_SYMBOL" default:"BTCUSDT"`
		TrendInterval      domain.TimeInterval `envconfig:"TREND_INTERVAL" default:"1d"`
		Prediction         bool                `envconfig:"AI_PREDICTION" default:"false"`
		PredictionPeriod   int                 `envconfig:"PREDICTION_PERIOD" default:"30"`
		MomentumInterval   domain.TimeInterval `envconfig:"MOMENTUM_INTERVAL" default:"4h"`
		RSIPeriod          int                 `envconfig:"RSI_PERIOD" default:"14"`
		RSIOverbought      float64             `envconfig:"RSI_OVERBOUGHT" default:"70"`
		RSIOversold        float64             `envconfig:"RSI_OVERSOLD" default:"30"`
		StochRSIOverbought float64             `envconfig:"STOCHRSI_OVERBOUGHT" default:"80"`
		StochRSIOversold   float64             `envconfig:"STOCHRSI_OVERSOLD" default:"20"`
	}

	// 바이낸스 API 설정 (시세 조회는 키 없이도 가능)
	Binance struct {
		APIKey          string            `envconfig:"BINANCE_API_KEY"`
		SecretKey       string            `envconfig:"BINANCE_SECRET_KEY"`
		BaseURL         string            `envconfig:"BINANCE_BASE_URL" default:"https://api.binance.com"`
		Quote           string            `envconfig:"PRICE_QUOTE" default:"USDT"`
		SymbolOverrides map[string]string `envconfig:"SYMBOL_OVERRIDES"`
	}

	// 디스코드 웹훅 설정
	Discord struct {
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
	}

	// 애플리케이션 설정
	App struct {
		Interval  time.Duration `envconfig:"INTERVAL" default:"1h"`
		LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string        `envconfig:"LOG_FORMAT" default:"json"`
	}

	// 사이클 기록 설정
	Journal struct {
		Path        string `envconfig:"JOURNAL_PATH" default:"cycle.json"`
		DatabaseURL string `envconfig:"DATABASE_URL"`
	}

	// 지표 서버 설정
	Metrics struct {
		Addr string `envconfig:"METRICS_ADDR"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	addrs := map[string]string{
		"REFERENCE_TOKEN": cfg.Portfolio.Reference,
		"SWAP_ROUTER":     cfg.Swap.Router,
		"QUOTER":          cfg.Swap.Quoter,
		"BRIDGE_TOKEN":    cfg.Swap.Bridge,
	}
	if cfg.Vault.BatchRouter != "" {
		addrs["BATCH_ROUTER"] = cfg.Vault.BatchRouter
	}
	if cfg.Fees.Enabled {
		addrs["WRAPPED_NATIVE"] = cfg.Fees.WrappedNative
	}
	for name, v := range addrs {
		if !common.IsHexAddress(v) {
			return fmt.Errorf("%s 주소가 올바르지 않습니다: %q", name, v)
		}
	}

	if len(cfg.Portfolio.Tokens) == 0 {
		return fmt.Errorf("TOKENS가 비어 있습니다")
	}
	seen := make(map[common.Address]bool, len(cfg.Portfolio.Tokens))
	for _, t := range cfg.Portfolio.Tokens {
		if !common.IsHexAddress(t) {
			return fmt.Errorf("TOKENS 주소가 올바르지 않습니다: %q", t)
		}
		addr := common.HexToAddress(t)
		if seen[addr] {
			return fmt.Errorf("TOKENS에 중복된 주소가 있습니다: %s", t)
		}
		seen[addr] = true
	}
	if !seen[common.HexToAddress(cfg.Portfolio.Reference)] {
		return fmt.Errorf("REFERENCE_TOKEN이 TOKENS에 없습니다")
	}

	up, down, err := cfg.Targets()
	if err != nil {
		return err
	}
	tokens := cfg.TokenList()
	for name, target := range map[string]domain.AllocationTarget{"WEIGHTS_UP": up, "WEIGHTS_DOWN": down} {
		if err := target.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := target.Covers(tokens); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	invest, err := cfg.InvestTarget()
	if err != nil {
		return err
	}
	if err := invest.Validate(); err != nil {
		return fmt.Errorf("INVEST_WEIGHTS: %w", err)
	}
	if err := invest.Covers(tokens); err != nil {
		return fmt.Errorf("INVEST_WEIGHTS: %w", err)
	}
	if cfg.Invest.Amount.IsNegative() {
		return fmt.Errorf("INVEST_AMOUNT는 음수일 수 없습니다: %s", cfg.Invest.Amount)
	}
	if cfg.Invest.Interval < 1*time.Minute {
		return fmt.Errorf("INVEST_INTERVAL은 1분 이상이어야 합니다")
	}

	if cfg.Portfolio.Limit < 0 || cfg.Portfolio.Limit >= domain.BasisPoints {
		return fmt.Errorf("LIMIT은 0 이상 10000 미만이어야 합니다")
	}
	if cfg.Swap.SlippageBps < 0 || cfg.Swap.SlippageBps >= domain.BasisPoints {
		return fmt.Errorf("SLIPPAGE_BPS는 0 이상 10000 미만이어야 합니다")
	}
	if len(cfg.Swap.FeeTiers) == 0 {
		return fmt.Errorf("FEE_TIERS가 비어 있습니다")
	}

	if len(cfg.Vault.Vaults) > 0 && cfg.Vault.BatchRouter == "" {
		return fmt.Errorf("VAULTS를 사용하려면 BATCH_ROUTER가 필요합니다")
	}
	if _, err := cfg.VaultMap(); err != nil {
		return err
	}
	if cfg.Vault.FallbackBps <= 0 || cfg.Vault.FallbackBps > domain.BasisPoints {
		return fmt.Errorf("REDEEM_FALLBACK_BPS는 1 이상 10000 이하이어야 합니다")
	}

	if cfg.Fees.Enabled && !cfg.Fees.Floor.LessThan(cfg.Fees.Ceiling) {
		return fmt.Errorf("NATIVE_FLOOR(%s)는 NATIVE_CEILING(%s)보다 작아야 합니다", cfg.Fees.Floor, cfg.Fees.Ceiling)
	}

	switch cfg.Signal.TrendIndicator {
	case "kst", "macd":
	default:
		return fmt.Errorf("TREND_INDICATOR는 kst 또는 macd이어야 합니다: %q", cfg.Signal.TrendIndicator)
	}

	if cfg.Chain.ConfirmAttempts < 1 {
		return fmt.Errorf("CONFIRM_ATTEMPTS는 1 이상이어야 합니다")
	}
	if cfg.Chain.GasPriceMultiplierPct < 100 {
		return fmt.Errorf("GAS_PRICE_MULTIPLIER_PCT는 100 이상이어야 합니다")
	}

	for name, iv := range map[string]domain.TimeInterval{
		"TREND_INTERVAL":    cfg.Signal.TrendInterval,
		"MOMENTUM_INTERVAL": cfg.Signal.MomentumInterval,
	} {
		if iv.Duration() == 0 {
			return fmt.Errorf("%s 값이 올바르지 않습니다: %q", name, iv)
		}
	}

	if cfg.App.Interval < 1*time.Minute {
		return fmt.Errorf("INTERVAL은 1분 이상이어야 합니다")
	}

	return nil
}

// TokenList는 설정된 토큰 주소를 메타데이터 없이 반환합니다
func (cfg *Config) TokenList() []domain.Token {
	tokens := make([]domain.Token, 0, len(cfg.Portfolio.Tokens))
	for _, t := range cfg.Portfolio.Tokens {
		tokens = append(tokens, domain.Token{Address: common.HexToAddress(t), Symbol: t})
	}
	return tokens
}

// Addresses는 설정된 토큰 주소 목록을 반환합니다
func (cfg *Config) Addresses() []common.Address {
	out := make([]common.Address, 0, len(cfg.Portfolio.Tokens))
	for _, t := range cfg.Portfolio.Tokens {
		out = append(out, common.HexToAddress(t))
	}
	return out
}

// Targets는 상승/하락 목표 비중을 반환합니다. WEIGHTS_DOWN이 없으면 WEIGHTS_UP을 사용합니다
func (cfg *Config) Targets() (up, down domain.AllocationTarget, err error) {
	up, err = toTarget(cfg.Portfolio.WeightsUp)
	if err != nil {
		return nil, nil, fmt.Errorf("WEIGHTS_UP: %w", err)
	}
	if len(cfg.Portfolio.WeightsDown) == 0 {
		return up, up, nil
	}
	down, err = toTarget(cfg.Portfolio.WeightsDown)
	if err != nil {
		return nil, nil, fmt.Errorf("WEIGHTS_DOWN: %w", err)
	}
	return up, down, nil
}

// InvestTarget은 적립식 매수 비중을 반환합니다. INVEST_WEIGHTS가 없으면 WEIGHTS_UP을 사용합니다
func (cfg *Config) InvestTarget() (domain.AllocationTarget, error) {
	if len(cfg.Invest.Weights) == 0 {
		up, _, err := cfg.Targets()
		return up, err
	}
	target, err := toTarget(cfg.Invest.Weights)
	if err != nil {
		return nil, fmt.Errorf("INVEST_WEIGHTS: %w", err)
	}
	return target, nil
}

func toTarget(weights map[string]int64) (domain.AllocationTarget, error) {
	target := make(domain.AllocationTarget, len(weights))
	for k, w := range weights {
		if !common.IsHexAddress(k) {
			return nil, fmt.Errorf("주소가 올바르지 않습니다: %q", k)
		}
		target[common.HexToAddress(k)] = w
	}
	return target, nil
}

// VaultMap은 토큰 → 볼트 주소 매핑을 반환합니다
func (cfg *Config) VaultMap() (map[common.Address]common.Address, error) {
	out := make(map[common.Address]common.Address, len(cfg.Vault.Vaults))
	for token, v := range cfg.Vault.Vaults {
		if !common.IsHexAddress(token) || !common.IsHexAddress(v) {
			return nil, fmt.Errorf("VAULTS 항목이 올바르지 않습니다: %s:%s", token, v)
		}
		out[common.HexToAddress(token)] = common.HexToAddress(v)
	}
	return out, nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	return load(".env")
}

func load(files ...string) (*Config, error) {
	// .env 파일이 없으면 환경변수만 사용
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}
	cfg.Binance.Quote = strings.ToUpper(cfg.Binance.Quote)

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
