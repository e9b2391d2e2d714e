package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Synapse/internal/domain"
)

// TraceRepo — репозиторий шагов рассуждений (append-only).
type TraceRepo struct {
	pool *pgxpool.Pool
}

// NewTraceRepo создаёт новый TraceRepo.
func NewTraceRepo(pool *pgxpool.Pool) *TraceRepo {
	return &TraceRepo{pool: pool}
}

// Append добавляет шаг. Номер шага задаёт воркер, он строго возрастает
// в пределах run'а; записи не мутируются после вставки.
func (r *TraceRepo) Append(ctx context.Context, t *domain.ReasoningTrace) error {
	query := `
		INSERT INTO reasoning_traces (run_id, step_number, step_type, content, agent_name, started_at, completed_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		t.RunID,
		t.StepNumber,
		t.StepType,
		t.Content,
		nullString(t.AgentName),
		t.StartedAt,
		t.CompletedAt,
		t.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert trace step: %w", err)
	}
	return nil
}

// ListByRun возвращает шаги run'а в порядке step_number.
func (r *TraceRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ReasoningTrace, error) {
	query := `
		SELECT run_id, step_number, step_type, content, agent_name, started_at, completed_at, duration_ms
		FROM reasoning_traces
		WHERE run_id = $1
		ORDER BY step_number ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list trace steps: %w", err)
	}
	defer rows.Close()

	var traces []domain.ReasoningTrace
	for rows.Next() {
		var t domain.ReasoningTrace
		var agentName *string

		if err := rows.Scan(&t.RunID, &t.StepNumber, &t.StepType, &t.Content, &agentName, &t.StartedAt, &t.CompletedAt, &t.DurationMS); err != nil {
			return nil, fmt.Errorf("scan trace step: %w", err)
		}
		if agentName != nil {
			t.AgentName = *agentName
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}
