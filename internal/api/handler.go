package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/repo"
)

// RunStore — доступ API к реестру runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
	ListActive(ctx context.Context, workspaceID string) ([]domain.Run, error)
}

// MessageStore — доступ API к сообщениям runs.
type MessageStore interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Message, error)
}

// NodeStateStore — доступ API к состояниям узлов.
type NodeStateStore interface {
	Get(ctx context.Context, runID uuid.UUID, nodeKey string) (*domain.NodeState, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.NodeState, error)
}

// TraceStore — доступ API к шагам рассуждений.
type TraceStore interface {
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ReasoningTrace, error)
}

// JobQueue — постановка jobs в очередь воркеров.
type JobQueue interface {
	Enqueue(ctx context.Context, job *domain.Job) error
}

// Canceller — отмена runs.
type Canceller interface {
	Cancel(ctx context.Context, runID uuid.UUID) (*domain.Run, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs       RunStore
	messages   MessageStore
	nodeStates NodeStateStore
	traces     TraceStore
	queue      JobQueue
	canceller  Canceller
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Runs       RunStore
	Messages   MessageStore
	NodeStates NodeStateStore
	Traces     TraceStore
	Queue      JobQueue
	Canceller  Canceller
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runs:       cfg.Runs,
		messages:   cfg.Messages,
		nodeStates: cfg.NodeStates,
		traces:     cfg.Traces,
		queue:      cfg.Queue,
		canceller:  cfg.Canceller,
		logger:     logger,
	}
}
