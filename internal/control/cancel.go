package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/repo"
)

// RunStore — доступ контроллера к реестру runs.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
}

// EventSink — публикация терминального события отмены.
type EventSink interface {
	PublishRunCompleted(ctx context.Context, run *domain.Run) error
}

// Controller отменяет активные runs.
//
// Отмена не прерывает уже работающий конвейер: воркер может дописать
// прогресс поверх статуса cancelled. Эта гонка принята — клиент в любом
// случае получает cancelled как терминальное событие.
type Controller struct {
	runs   RunStore
	events EventSink
	logger *slog.Logger
}

// New создаёт новый Controller.
func New(runs RunStore, events EventSink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{runs: runs, events: events, logger: logger}
}

// Cancel переводит run в статус cancelled.
//
// Ошибки:
//   - repo.ErrNotFound — run не существует
//   - repo.ErrInvalidState — run уже терминален
func (c *Controller) Cancel(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	run, err := c.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.IsFinished() {
		return nil, fmt.Errorf("%w: run is %s", repo.ErrInvalidState, run.Status)
	}

	run.MarkCancelled()
	if err := c.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("update run to cancelled: %w", err)
	}

	// Событие best-effort: статус уже в реестре.
	if err := c.events.PublishRunCompleted(ctx, run); err != nil {
		c.logger.Warn("failed to publish run_completed for cancel",
			"run_id", run.ID,
			"error", err,
		)
	}

	c.logger.Info("run cancelled", "run_id", run.ID, "workspace_id", run.WorkspaceID)
	return run, nil
}
