package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assist-by/equilibria/internal/logger"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// Scheduler는 정해진 시간에 작업을 실행하는 스케줄러입니다
// 작업이 끝나야 다음 실행 시간을 계산하므로 실행이 겹치지 않습니다
type Scheduler struct {
	interval  time.Duration
	task      Task
	immediate bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	log       zerolog.Logger
}

// Option은 스케줄러 옵션입니다
type Option func(*Scheduler)

// WithRunImmediately는 시작하자마자 한 번 실행합니다
func WithRunImmediately() Option {
	return func(s *Scheduler) {
		s.immediate = true
	}
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(interval time.Duration, task Task, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		task:     task,
		stopCh:   make(chan struct{}),
		log:      logger.For("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start는 스케줄러를 시작합니다. ctx가 취소되거나 Stop이 호출될 때까지 블록됩니다
func (s *Scheduler) Start(ctx context.Context) error {
	if s.immediate {
		s.run(ctx)
	}

	timer := time.NewTimer(s.next())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-timer.C:
			// Stop과 타이머가 동시에 준비되면 중지를 우선합니다
			select {
			case <-s.stopCh:
				return nil
			default:
			}

			s.run(ctx)
			timer.Reset(s.next())
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	if err := s.task.Execute(ctx); err != nil {
		// 에러가 발생해도 계속 실행
		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("작업 실행 실패")
		return
	}
	s.log.Debug().Dur("elapsed", time.Since(start)).Msg("작업 실행 완료")
}

// next는 다음 정각 간격까지 남은 시간을 계산합니다
func (s *Scheduler) next() time.Duration {
	now := time.Now()
	nextRun := now.Truncate(s.interval).Add(s.interval)
	wait := nextRun.Sub(now)

	s.log.Info().
		Str("wait", wait.Round(time.Second).String()).
		Str("next", nextRun.Format("15:04:05")).
		Msg("다음 실행까지 대기")
	return wait
}

// Stop은 스케줄러를 중지합니다. 여러 번 호출해도 안전합니다
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
