package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Synapse/internal/domain"
)

// RunRepo — репозиторий для работы с runs.
//
// Все записи — read-modify-write по одной строке без транзакционной
// изоляции: конкурентные писатели одного run'а (например, cancel
// наперегонки с обновлением прогресса) могут перемежаться. Это принятая,
// задокументированная гонка.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

const runColumns = `
	id, workspace_id, user_id, run_kind, prompt, context, status, progress,
	current_step, result, summary, error, created_nodes, created_edges,
	created_at, completed_at
`

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	contextJSON, err := json.Marshal(run.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	query := `
		INSERT INTO runs (id, workspace_id, user_id, run_kind, prompt, context, status, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.WorkspaceID,
		run.UserID,
		run.Kind,
		run.Prompt,
		contextJSON,
		run.Status,
		run.Progress,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список runs с фильтрацией.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE ($1::text IS NULL OR workspace_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.WorkspaceID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// ListActive возвращает runs workspace'а в статусах queued и running.
//
// Используется gateway'ем для snapshot при подключении клиента.
func (r *RunRepo) ListActive(ctx context.Context, workspaceID string) ([]domain.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE workspace_id = $1 AND status IN ('queued', 'running')
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list active runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// Update перезаписывает изменяемые поля run'а.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	nodesJSON, err := json.Marshal(run.CreatedNodes)
	if err != nil {
		return fmt.Errorf("marshal created nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(run.CreatedEdges)
	if err != nil {
		return fmt.Errorf("marshal created edges: %w", err)
	}

	query := `
		UPDATE runs
		SET status = $2, progress = $3, current_step = $4, result = $5,
		    summary = $6, error = $7, created_nodes = $8, created_edges = $9,
		    completed_at = $10
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.Progress,
		nullString(run.CurrentStep),
		resultJSON,
		nullString(run.Summary),
		nullString(run.Error),
		nodesJSON,
		edgesJSON,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	WorkspaceID string
	Status      domain.RunStatus
	Limit       int
	Offset      int
}

// scanRun сканирует одну строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var contextJSON, resultJSON, nodesJSON, edgesJSON []byte
	var currentStep, summary, runError *string

	err := row.Scan(
		&run.ID,
		&run.WorkspaceID,
		&run.UserID,
		&run.Kind,
		&run.Prompt,
		&contextJSON,
		&run.Status,
		&run.Progress,
		&currentStep,
		&resultJSON,
		&summary,
		&runError,
		&nodesJSON,
		&edgesJSON,
		&run.CreatedAt,
		&run.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if contextJSON != nil {
		if err := json.Unmarshal(contextJSON, &run.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if nodesJSON != nil {
		if err := json.Unmarshal(nodesJSON, &run.CreatedNodes); err != nil {
			return nil, fmt.Errorf("unmarshal created nodes: %w", err)
		}
	}
	if edgesJSON != nil {
		if err := json.Unmarshal(edgesJSON, &run.CreatedEdges); err != nil {
			return nil, fmt.Errorf("unmarshal created edges: %w", err)
		}
	}

	if currentStep != nil {
		run.CurrentStep = *currentStep
	}
	if summary != nil {
		run.Summary = *summary
	}
	if runError != nil {
		run.Error = *runError
	}

	return &run, nil
}

// collectRuns сканирует все строки rows в слайс Run.
func collectRuns(rows pgx.Rows) ([]domain.Run, error) {
	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
