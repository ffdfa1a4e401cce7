package signal

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/domain"
	"github.com/assist-by/equilibria/internal/logger"
)

// Selection은 한 사이클에 선택된 목표 비중과 근거 신호입니다
type Selection struct {
	Trend   domain.Trend
	AI      domain.TrendDirection
	Up      bool
	Weights domain.AllocationTarget
}

// WeightSelector는 추세 신호로 상승/하락 비중 중 하나를 고릅니다
// 직전 추세를 사이클 사이에 유지합니다
type WeightSelector struct {
	trend          TrendSignal
	predictor      PricePredictor // nil이면 예측 신호를 사용하지 않음
	trendFollowing bool
	up             domain.AllocationTarget
	down           domain.AllocationTarget

	mu     sync.Mutex
	lastUp bool
	log    zerolog.Logger
}

// NewWeightSelector는 새로운 WeightSelector를 생성합니다
func NewWeightSelector(trend TrendSignal, predictor PricePredictor, trendFollowing bool, up, down domain.AllocationTarget) *WeightSelector {
	if down == nil {
		down = up
	}
	return &WeightSelector{
		trend:          trend,
		predictor:      predictor,
		trendFollowing: trendFollowing,
		up:             up,
		down:           down,
		lastUp:         true,
		log:            logger.For("signal"),
	}
}

// Select는 이번 사이클의 목표 비중을 선택합니다
// 신호 조회에 실패하면 직전 추세의 비중과 함께 에러를 반환합니다
func (s *WeightSelector) Select(ctx context.Context) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trendFollowing {
		return s.selection(domain.Trend{Direction: domain.TrendNone}, domain.TrendNone, true), nil
	}

	trend, err := s.trend.Trend(ctx)
	if err != nil {
		return s.selection(domain.Trend{Direction: domain.TrendNone}, domain.TrendNone, s.lastUp),
			fmt.Errorf("추세 신호 조회 실패: %w", err)
	}

	ai := domain.TrendNone
	if s.predictor != nil {
		prediction, err := s.predictor.Predict(ctx)
		if err != nil {
			return s.selection(trend, domain.TrendNone, s.lastUp), fmt.Errorf("예측 신호 조회 실패: %w", err)
		}
		ai = prediction.Direction()
	}

	up := s.lastUp
	switch {
	case s.predictor != nil:
		if trend.Crossed && trend.Direction == domain.TrendUp && ai == domain.TrendUp {
			up = true
		} else if trend.Crossed && trend.Direction == domain.TrendDown && ai == domain.TrendDown {
			up = false
		}
	default:
		if trend.Crossed && trend.Direction == domain.TrendUp {
			up = true
		} else if trend.Crossed && trend.Direction == domain.TrendDown {
			up = false
		}
	}
	s.lastUp = up

	s.log.Info().
		Str("kst", string(trend.Direction)).
		Bool("cross", trend.Crossed).
		Str("ai", string(ai)).
		Bool("up", up).
		Msg("목표 비중 선택")

	return s.selection(trend, ai, up), nil
}

func (s *WeightSelector) selection(trend domain.Trend, ai domain.TrendDirection, up bool) Selection {
	weights := s.down
	if up {
		weights = s.up
	}
	return Selection{Trend: trend, AI: ai, Up: up, Weights: weights}
}
