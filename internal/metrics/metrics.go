// Package metrics는 리밸런서의 Prometheus 지표를 제공합니다
package metrics

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

// Metrics는 리밸런서 지표 모음입니다
type Metrics struct {
	CyclesTotal          *prometheus.CounterVec
	PortfolioValue       prometheus.Gauge
	InstructionsTotal    *prometheus.CounterVec
	SwapsTotal           *prometheus.CounterVec
	ConfirmationAttempts *prometheus.HistogramVec
	VaultInterestDelta   *prometheus.GaugeVec
	LastCycle            prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New는 reg에 등록된 Metrics를 생성합니다
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "rebalancer"
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "total",
			Help:      "Rebalance cycles by final state",
		}, []string{"state"}),
		PortfolioValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "value",
			Help:      "Total portfolio value in the reference currency",
		}),
		InstructionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "instruction",
			Name:      "total",
			Help:      "Processed instructions by operation and status",
		}, []string{"op", "status"}),
		SwapsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "total",
			Help:      "Executed swaps by route kind",
		}, []string{"kind"}),
		ConfirmationAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "confirmation_attempts",
			Help:      "Receipt polls until confirmation or timeout",
			Buckets:   []float64{1, 2, 3, 5, 8, 12, 16, 20},
		}, []string{"result"}),
		VaultInterestDelta: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "interest_delta",
			Help:      "Interest accrued since the previous cycle",
		}, []string{"token"}),
		LastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "last_timestamp",
			Help:      "Unix time of the last finished cycle",
		}),
		gatherer: reg,
	}
}

// ObserveCycle은 사이클 종료 상태와 총 가치를 기록합니다
func (m *Metrics) ObserveCycle(state string, total *big.Int) {
	m.CyclesTotal.WithLabelValues(state).Inc()
	m.LastCycle.SetToCurrentTime()
	if total != nil {
		v, _ := domain.ToDisplay(total, domain.ValueDecimals).Float64()
		m.PortfolioValue.Set(v)
	}
}

// ObserveInstruction은 지시 처리 결과를 기록합니다
func (m *Metrics) ObserveInstruction(op, status string) {
	m.InstructionsTotal.WithLabelValues(op, status).Inc()
}

// ObserveSwap은 실행된 스왑의 경로 종류를 기록합니다
func (m *Metrics) ObserveSwap(kind string) {
	m.SwapsTotal.WithLabelValues(kind).Inc()
}

// ObserveInterest는 볼트 이자 증가분을 기록합니다
func (m *Metrics) ObserveInterest(token string, delta *big.Int) {
	if delta == nil {
		return
	}
	v, _ := new(big.Float).SetInt(delta).Float64()
	m.VaultInterestDelta.WithLabelValues(token).Set(v)
}

// ObserveConfirmation은 receipt 폴링 횟수를 기록합니다
func (m *Metrics) ObserveConfirmation(attempts int, confirmed bool) {
	result := "confirmed"
	if !confirmed {
		result = "timeout"
	}
	m.ConfirmationAttempts.WithLabelValues(result).Observe(float64(attempts))
}

// Handler는 /metrics 엔드포인트 핸들러를 반환합니다
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Server는 지표 HTTP 서버입니다
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// NewServer는 addr에서 /metrics를 제공하는 서버를 생성합니다
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.For("metrics"),
	}
}

// Start는 백그라운드에서 서버를 실행합니다
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("지표 서버 시작")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("지표 서버 에러")
		}
	}()
}

// Shutdown은 서버를 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
