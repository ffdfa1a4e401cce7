package journal

import (
	"context"
	"errors"
)

// Sink는 사이클 기록 저장소입니다
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Multi는 여러 저장소에 같은 기록을 남깁니다
// 하나가 실패해도 나머지에는 기록합니다
type Multi []Sink

// Record는 모든 저장소에 기록하고 실패를 합쳐서 반환합니다
func (m Multi) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
