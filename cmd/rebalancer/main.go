package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/chain"
	"github.com/assist-by/equilibria/internal/config"
	"github.com/assist-by/equilibria/internal/executor"
	"github.com/assist-by/equilibria/internal/journal"
	"github.com/assist-by/equilibria/internal/logger"
	"github.com/assist-by/equilibria/internal/market"
	"github.com/assist-by/equilibria/internal/metrics"
	"github.com/assist-by/equilibria/internal/notification/discord"
	"github.com/assist-by/equilibria/internal/oracle"
	"github.com/assist-by/equilibria/internal/planner"
	"github.com/assist-by/equilibria/internal/rebalance"
	"github.com/assist-by/equilibria/internal/scheduler"
	"github.com/assist-by/equilibria/internal/signal"
	"github.com/assist-by/equilibria/internal/swap"
	"github.com/assist-by/equilibria/internal/valuation"
	"github.com/assist-by/equilibria/internal/vault"
)

func main() {
	// 명령줄 플래그 정의
	onceFlag := flag.Bool("once", false, "사이클 한 번 실행 후 종료")
	dryRunFlag := flag.Bool("dry-run", false, "평가와 계획만 하고 트랜잭션은 보내지 않음")
	investFlag := flag.Bool("invest", false, "리밸런싱 대신 목표 비중대로 적립식 매수")

	// 플래그 파싱
	flag.Parse()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 로그 설정
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)
	log := logger.For("main")
	log.Info().Bool("once", *onceFlag).Bool("dryRun", *dryRunFlag).Bool("invest", *investFlag).Msg("리밸런서 시작...")
	if *investFlag && *dryRunFlag {
		log.Error().Msg("-invest 모드는 -dry-run을 지원하지 않습니다")
		os.Exit(1)
	}

	// Discord 클라이언트 생성
	discordClient := discord.NewClient(
		cfg.Discord.TradeWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.InfoWebhook,
		discord.WithTimeout(10*time.Second),
	)

	app, err := build(ctx, cfg, *dryRunFlag, discordClient, log)
	if err != nil {
		log.Error().Err(err).Msg("초기화 실패")
		if err := discordClient.SendError(fmt.Errorf("리밸런서 초기화 실패: %w", err)); err != nil {
			log.Warn().Err(err).Msg("에러 알림 전송 실패")
		}
		os.Exit(1)
	}
	defer app.close()

	// 실행할 작업 선택
	var job scheduler.Task = app.task
	interval := cfg.App.Interval
	if *investFlag {
		job = app.investor
		interval = cfg.Invest.Interval
	}

	// 단일 실행 모드
	if *onceFlag && *investFlag {
		if err := job.Execute(ctx); err != nil {
			log.Error().Err(err).Msg("적립식 매수 실패")
			os.Exit(1)
		}
		log.Info().Msg("프로그램을 종료합니다.")
		return
	}
	if *onceFlag {
		if err := app.task.Execute(ctx); err != nil {
			log.Error().Err(err).Msg("사이클 실행 실패")
			os.Exit(1)
		}
		if report := app.task.LastReport(); report != nil {
			log.Info().
				Str("cycle", report.CycleID.String()).
				Str("state", string(report.State)).
				Int("executed", report.Count(rebalance.StatusExecuted)).
				Int("failed", report.Count(rebalance.StatusFailed)).
				Msg("사이클 완료")
		}
		log.Info().Msg("프로그램을 종료합니다.")
		return
	}

	// 시작 알림 전송
	if err := discordClient.SendInfo(fmt.Sprintf("🚀 리밸런서가 시작되었습니다. (간격 %s)", interval)); err != nil {
		log.Warn().Err(err).Msg("시작 알림 전송 실패")
	}

	// 스케줄러 생성
	sched := scheduler.NewScheduler(interval, job, scheduler.WithRunImmediately())

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 스케줄러 시작
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Start(ctx); err != nil {
			log.Error().Err(err).Msg("스케줄러 실행 중 에러 발생")
			if err := discordClient.SendError(err); err != nil {
				log.Warn().Err(err).Msg("에러 알림 전송 실패")
			}
		}
	}()

	// 시그널 대기
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("시스템 종료 신호 수신")

	// 스케줄러 중지, 진행 중인 사이클은 끝까지 기다림
	sched.Stop()
	<-done

	// 종료 알림 전송
	if err := discordClient.SendInfo("👋 리밸런서가 정상적으로 종료되었습니다."); err != nil {
		log.Warn().Err(err).Msg("종료 알림 전송 실패")
	}

	log.Info().Msg("프로그램을 종료합니다.")
}

// application은 조립된 구성 요소와 정리 함수입니다
type application struct {
	task     *rebalance.Task
	investor *rebalance.Investor
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build는 설정으로 모든 구성 요소를 조립합니다
func build(ctx context.Context, cfg *config.Config, dryRun bool, notifier *discord.Client, log zerolog.Logger) (*application, error) {
	app := &application{}

	// 체인 연결
	client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, client.Close)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("체인 ID 조회 실패: %w", err)
	}
	if chainID.Int64() != cfg.Chain.ChainID {
		return nil, fmt.Errorf("체인 ID 불일치: 설정 %d, 노드 %s", cfg.Chain.ChainID, chainID)
	}

	// 지표
	var observer rebalance.Observer
	execOpts := []executor.Option{
		executor.WithPollInterval(cfg.Chain.ConfirmInterval),
		executor.WithMaxAttempts(cfg.Chain.ConfirmAttempts),
		executor.WithGasPriceMultiplier(cfg.Chain.GasPriceMultiplierPct),
	}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		m := metrics.New("rebalancer", reg)
		srv := metrics.NewServer(cfg.Metrics.Addr, m)
		srv.Start()
		app.closers = append(app.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
		observer = m
		execOpts = append(execOpts, executor.WithObserver(m.ObserveConfirmation))
	}

	// 서명자
	exec, err := executor.New(client, cfg.Chain.PrivateKey, big.NewInt(cfg.Chain.ChainID), execOpts...)
	if err != nil {
		return nil, err
	}
	account := exec.Address()
	log.Info().Str("account", account.Hex()).Int64("chainId", cfg.Chain.ChainID).Msg("서명자 준비 완료")

	tokens := chain.NewTokenReader(client)
	reference := common.HexToAddress(cfg.Portfolio.Reference)
	refToken, err := tokens.Token(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("기준통화 조회 실패: %w", err)
	}

	// 스왑 라우터
	router := swap.NewRouter(
		chain.NewQuoter(client, common.HexToAddress(cfg.Swap.Quoter)),
		tokens,
		exec,
		account,
		swap.Config{
			SwapRouter:  common.HexToAddress(cfg.Swap.Router),
			Bridge:      common.HexToAddress(cfg.Swap.Bridge),
			FeeTiers:    cfg.Swap.FeeTiers,
			SlippageBps: cfg.Swap.SlippageBps,
			Deadline:    cfg.Swap.Deadline,
		},
	)

	// 시세와 가치 평가
	marketClient := market.NewClient(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Binance.BaseURL)
	priceOracle := oracle.NewBinanceOracle(marketClient, cfg.Binance.Quote, cfg.Binance.SymbolOverrides)
	engine := valuation.NewEngine(priceOracle, reference, cfg.Chain.ChainID)

	// 볼트
	batchRouter := common.HexToAddress(cfg.Vault.BatchRouter)
	accountant := vault.NewAccountant(
		vault.NewERC4626(client, batchRouter, cfg.Chain.ChainID),
		exec,
		batchRouter,
		account,
		cfg.Chain.ChainID,
		cfg.Vault.FallbackBps,
	)
	vaults, err := cfg.VaultMap()
	if err != nil {
		return nil, err
	}

	// 신호
	up, down, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	var predictor signal.PricePredictor
	if cfg.Signal.Prediction {
		predictor = signal.NewRegressionPredictor(marketClient, cfg.Signal.TrendSymbol, cfg.Signal.TrendInterval, cfg.Signal.PredictionPeriod)
	}
	trend, err := signal.NewTrend(cfg.Signal.TrendIndicator, marketClient, cfg.Signal.TrendSymbol, cfg.Signal.TrendInterval)
	if err != nil {
		return nil, err
	}
	selector := signal.NewWeightSelector(
		trend,
		predictor,
		cfg.Signal.TrendFollowing,
		up,
		down,
	)

	var momentum signal.MomentumSignal
	if cfg.Signal.TechnicalAnalysis {
		momentum = signal.NewRSIMomentum(marketClient, priceOracle.Symbol, signal.MomentumConfig{
			Interval:           cfg.Signal.MomentumInterval,
			RSIPeriod:          cfg.Signal.RSIPeriod,
			RSIOverbought:      cfg.Signal.RSIOverbought,
			RSIOversold:        cfg.Signal.RSIOversold,
			StochRSIOverbought: cfg.Signal.StochRSIOverbought,
			StochRSIOversold:   cfg.Signal.StochRSIOversold,
		})
	}

	var recharger rebalance.FeeRecharger
	if cfg.Fees.Enabled {
		recharger = rebalance.NewRecharger(tokens, router, exec, rebalance.FeeConfig{
			Account:        account,
			WrappedNative:  common.HexToAddress(cfg.Fees.WrappedNative),
			Reference:      refToken,
			Floor:          cfg.Fees.Floor,
			Ceiling:        cfg.Fees.Ceiling,
			TopUpReference: cfg.Fees.TopUpReference,
		})
	}

	// 사이클 기록
	fileRecorder := journal.NewFileRecorder(cfg.Journal.Path)
	sinks := journal.Multi{fileRecorder}
	var pgRecorder *journal.PostgresRecorder
	if cfg.Journal.DatabaseURL != "" {
		pool, err := journal.NewPool(ctx, cfg.Journal.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pool.Close)
		if err := journal.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		pgRecorder = journal.NewPostgresRecorder(pool)
		sinks = append(sinks, pgRecorder)
	}
	logLastCycle(ctx, log, fileRecorder, pgRecorder)

	orchestrator := rebalance.New(rebalance.Config{
		Account:           account,
		Reference:         reference,
		Tokens:            cfg.Addresses(),
		Vaults:            vaults,
		TechnicalAnalysis: cfg.Signal.TechnicalAnalysis,
		SellCooldown:      cfg.Swap.SellCooldown,
		BuyCooldown:       cfg.Swap.BuyCooldown,
		DryRun:            dryRun,
	}, rebalance.Deps{
		Balances:   tokens,
		Accountant: accountant,
		Valuer:     engine,
		Planner:    planner.New(refToken, cfg.Portfolio.Limit),
		Swapper:    router,
		Selector:   selector,
		Recharger:  recharger,
		Momentum:   momentum,
		Recorder:   sinks,
		Notifier:   notifier,
		Observer:   observer,
	})

	app.task = rebalance.NewTask(orchestrator)

	investTarget, err := cfg.InvestTarget()
	if err != nil {
		return nil, err
	}
	app.investor = rebalance.NewInvestor(tokens, router, recharger, rebalance.InvestConfig{
		Account:   account,
		Reference: refToken,
		Tokens:    cfg.Addresses(),
		Target:    investTarget,
		Amount:    cfg.Invest.Amount,
		Cooldown:  cfg.Invest.Cooldown,
	})
	return app, nil
}

// logLastCycle은 이전 실행의 마지막 사이클 기록을 남깁니다
// DB 기록이 있으면 우선하고 없으면 파일 기록을 읽습니다
func logLastCycle(ctx context.Context, log zerolog.Logger, file *journal.FileRecorder, pg *journal.PostgresRecorder) {
	var (
		last journal.Record
		err  error
	)
	if pg != nil {
		var recent []journal.Record
		if recent, err = pg.Recent(ctx, 1); err == nil && len(recent) > 0 {
			last = recent[0]
		}
	}
	if last.CycleID == "" && err == nil {
		last, err = file.Last()
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info().Msg("이전 사이클 기록이 없습니다")
	case err != nil:
		log.Warn().Err(err).Msg("이전 사이클 기록 조회 실패")
	default:
		log.Info().
			Str("cycle", last.CycleID).
			Str("state", last.State).
			Time("at", last.Timestamp).
			Str("totalValue", last.TotalValue).
			Msg("이전 사이클")
	}
}
