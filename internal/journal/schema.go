package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS rebalance_cycles (
    cycle_id         UUID PRIMARY KEY,
    recorded_at      TIMESTAMPTZ NOT NULL,
    state            TEXT NOT NULL,
    signal           TEXT NOT NULL,
    ai_signal        TEXT NOT NULL,
    selected_weights TEXT NOT NULL,
    total_value      NUMERIC NOT NULL,
    payload          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rebalance_cycles_recorded_at ON rebalance_cycles (recorded_at DESC);
`

// Migrate는 rebalance_cycles 테이블을 생성합니다
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("스키마 적용 실패: %w", err)
	}
	return nil
}
