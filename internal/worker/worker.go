package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/bus"
	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/pipeline"
)

// Default configuration values.
const (
	defaultPollTimeout = 5 * time.Second
	defaultConcurrency = 1

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// JobQueue — источник jobs для воркера.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error)
}

// RunStore — доступ воркера к реестру runs.
type RunStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
}

// MessageStore — запись сообщений run'а.
type MessageStore interface {
	Create(ctx context.Context, msg *domain.Message) error
}

// NodeStateStore — запись состояний визуальных элементов.
type NodeStateStore interface {
	Upsert(ctx context.Context, ns *domain.NodeState) error
}

// TraceStore — запись шагов рассуждений.
type TraceStore interface {
	Append(ctx context.Context, t *domain.ReasoningTrace) error
}

// EventSink — публикация событий run'а в шину.
type EventSink interface {
	PublishRunProgress(ctx context.Context, run *domain.Run) error
	PublishRunCompleted(ctx context.Context, run *domain.Run) error
	PublishNodeState(ctx context.Context, workspaceID string, ns *domain.NodeState) error
	PublishNodeCreated(ctx context.Context, workspaceID string, runID uuid.UUID, node map[string]any) error
	PublishEdgeCreated(ctx context.Context, workspaceID string, runID uuid.UUID, edge map[string]any) error
	PublishReasoningStep(ctx context.Context, workspaceID string, trace *domain.ReasoningTrace) error
	PublishChunk(ctx context.Context, runID uuid.UUID, chunk *domain.StreamChunk) error
}

// Worker выполняет runs из очереди.
//
// Worker — stateless компонент системы, который:
//   - Блокирующе забирает jobs из очереди (atomic dequeue, job достаётся
//     ровно одному воркеру)
//   - Прогоняет run через AI-конвейер, транслируя промежуточные события
//     в шину и реестр
//   - Фиксирует терминальный статус и публикует run_completed
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди. Retry нет: упавший run остаётся
// failed, потерянный при падении воркера job не восстанавливается.
type Worker struct {
	queue      JobQueue
	runs       RunStore
	messages   MessageStore
	nodeStates NodeStateStore
	traces     TraceStore
	events     EventSink

	executor  pipeline.Executor
	retriever pipeline.Retriever

	pollTimeout time.Duration
	concurrency int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	Queue      JobQueue
	Runs       RunStore
	Messages   MessageStore
	NodeStates NodeStateStore
	Traces     TraceStore
	Events     EventSink

	// Executor — AI-конвейер (обязательно).
	Executor pipeline.Executor

	// Retriever — поиск документов (опционально, best-effort).
	Retriever pipeline.Retriever

	// PollTimeout — таймаут блокирующего dequeue (default: 5s).
	PollTimeout time.Duration

	// Concurrency — число параллельных циклов обработки (default: 1).
	Concurrency int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:       cfg.Queue,
		runs:        cfg.Runs,
		messages:    cfg.Messages,
		nodeStates:  cfg.NodeStates,
		traces:      cfg.Traces,
		events:      cfg.Events,
		executor:    cfg.Executor,
		retriever:   cfg.Retriever,
		pollTimeout: pollTimeout,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Start запускает циклы обработки.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_timeout", w.pollTimeout,
		"concurrency", w.concurrency,
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.loop(ctx)
		}()
	}

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущих runs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// loop — основной цикл: dequeue и обработка по одному job.
//
// Ошибки брокера не валят цикл: экспоненциальный backoff от 1s до 30s,
// сброс после первого успешного dequeue.
func (w *Worker) loop(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, bus.ErrMalformedJob) {
				// Битый payload — лог и дальше, очередь не блокируем.
				w.logger.Warn("discarding malformed job", "error", err)
				continue
			}

			w.logger.Error("dequeue failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		if job == nil {
			continue
		}

		w.process(ctx, job)
	}
}
