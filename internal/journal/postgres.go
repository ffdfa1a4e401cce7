package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder는 사이클 기록을 rebalance_cycles 테이블에 저장합니다
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPool은 Postgres 연결 풀을 생성하고 연결을 확인합니다
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn 파싱 실패: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres 연결 실패: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping 실패: %w", err)
	}
	return pool, nil
}

// NewPostgresRecorder는 새로운 PostgresRecorder를 생성합니다
func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

// Record는 사이클 기록 한 건을 저장합니다. 같은 cycle_id는 덮어씁니다
func (p *PostgresRecorder) Record(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.CycleID)
	if err != nil {
		return fmt.Errorf("잘못된 사이클 ID %q: %w", rec.CycleID, err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("사이클 기록 직렬화 실패: %w", err)
	}

	total := rec.TotalValue
	if total == "" {
		total = "0"
	}

	query := `
		INSERT INTO rebalance_cycles (
			cycle_id, recorded_at, state, signal, ai_signal, selected_weights, total_value, payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7::text::numeric, $8
		)
		ON CONFLICT (cycle_id) DO UPDATE SET
			recorded_at = EXCLUDED.recorded_at,
			state = EXCLUDED.state,
			total_value = EXCLUDED.total_value,
			payload = EXCLUDED.payload
	`

	_, err = p.pool.Exec(ctx, query,
		id, rec.Timestamp, rec.State, rec.Signal, rec.AISignal, rec.SelectedWeights, total, string(payload),
	)
	if err != nil {
		return fmt.Errorf("사이클 기록 저장 실패: %w", err)
	}
	return nil
}

// Recent는 최근 기록을 최신순으로 limit개 반환합니다
func (p *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT payload FROM rebalance_cycles
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("사이클 기록 조회 실패: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("사이클 기록 스캔 실패: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("사이클 기록 파싱 실패: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
