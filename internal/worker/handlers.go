package worker

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/Synapse/internal/domain"
	"github.com/shaiso/Synapse/internal/pipeline"
	"github.com/shaiso/Synapse/internal/repo"
)

// process выполняет один job: загрузка run'а, конвейер, терминальный статус.
func (w *Worker) process(ctx context.Context, job *domain.Job) {
	logger := w.logger.With("run_id", job.RunID, "workspace_id", job.WorkspaceID)

	// 1. Загружаем run. Job без run'а — мусор, тихо выбрасываем.
	run, err := w.runs.GetByID(ctx, job.RunID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Warn("job references unknown run, discarding")
			return
		}
		logger.Error("failed to load run", "error", err)
		return
	}

	// 2. Отменённый до старта run выбрасывается без событий.
	if run.Status == domain.RunStatusCancelled {
		logger.Debug("run cancelled before start, discarding job")
		return
	}
	if run.Status != domain.RunStatusQueued {
		logger.Warn("run is not queued, discarding job", "status", run.Status)
		return
	}

	// 3. queued -> running
	run.MarkRunning()
	if err := w.runs.Update(ctx, run); err != nil {
		logger.Error("failed to mark run running", "error", err)
		return
	}
	w.publishProgress(ctx, run)

	logger.Info("run started", "run_kind", run.Kind)

	in := pipeline.Input{
		RunID:       job.RunID,
		WorkspaceID: job.WorkspaceID,
		UserID:      job.UserID,
		Kind:        job.Kind,
		Prompt:      job.Prompt,
		Context:     job.Context,
	}

	// 4. Retrieval — best-effort: ошибка не прерывает run.
	if w.retriever != nil {
		docs, err := w.retriever.Retrieve(ctx, in)
		if err != nil {
			logger.Warn("retrieval failed, continuing without documents", "error", err)
		} else {
			in.Documents = docs
			logger.Debug("retrieval done", "documents", len(docs))
		}
	}

	// 5. Конвейер. Промежуточные события транслируются колбэками.
	ev := w.runEvents(ctx, run)
	out, execErr := w.execute(ctx, in, ev)

	// 6. Терминальный статус.
	if execErr != nil {
		w.finishFailed(ctx, run, execErr)
		return
	}
	w.finishCompleted(ctx, run, out)
}

// execute запускает конвейер, предпочитая потоковый путь.
//
// Если ExecuteStream упал до первого события — откат на Execute
// (потоковый endpoint может быть недоступен при живом обычном).
// После первого события отката нет: события уже ушли клиентам.
func (w *Worker) execute(ctx context.Context, in pipeline.Input, ev *pipeline.Events) (*pipeline.Output, error) {
	streamer, ok := w.executor.(pipeline.Streamer)
	if !ok {
		return w.executor.Execute(ctx, in, ev)
	}

	emitted := false
	out, err := streamer.ExecuteStream(ctx, in, markEmitted(ev, &emitted))
	if err != nil && !emitted && ctx.Err() == nil {
		w.logger.Warn("streaming failed before first event, falling back",
			"run_id", in.RunID,
			"error", err,
		)
		return w.executor.Execute(ctx, in, ev)
	}
	return out, err
}

// markEmitted оборачивает колбэки, отмечая первое событие конвейера.
func markEmitted(ev *pipeline.Events, emitted *bool) *pipeline.Events {
	mark := func() { *emitted = true }
	return &pipeline.Events{
		Progress:    func(p int, step string) { mark(); ev.EmitProgress(p, step) },
		NodeState:   func(u pipeline.NodeUpdate) { mark(); ev.EmitNodeState(u) },
		NodeCreated: func(node map[string]any) { mark(); ev.EmitNodeCreated(node) },
		EdgeCreated: func(edge map[string]any) { mark(); ev.EmitEdgeCreated(edge) },
		Reasoning:   func(s pipeline.ReasoningStep) { mark(); ev.EmitReasoning(s) },
		Chunk:       func(c domain.StreamChunk) { mark(); ev.EmitChunk(c) },
	}
}

// runEvents собирает колбэки конвейера для run'а.
//
// Каждый колбэк: запись в реестр (лог при ошибке, run продолжается)
// и публикация события в шину. Номера шагов рассуждений присваивает
// локальный счётчик — строго возрастают в пределах run'а.
func (w *Worker) runEvents(ctx context.Context, run *domain.Run) *pipeline.Events {
	stepNumber := 0

	return &pipeline.Events{
		Progress: func(progress int, step string) {
			run.AdvanceProgress(progress, step)
			if err := w.runs.Update(ctx, run); err != nil {
				w.logger.Error("failed to persist progress", "run_id", run.ID, "error", err)
			}
			w.publishProgress(ctx, run)
		},

		NodeState: func(u pipeline.NodeUpdate) {
			ns := &domain.NodeState{
				RunID:      run.ID,
				NodeID:     u.NodeID,
				TempNodeID: u.TempNodeID,
				State:      u.State,
				StateData:  u.StateData,
				UpdatedAt:  time.Now().UTC(),
			}
			if err := w.nodeStates.Upsert(ctx, ns); err != nil {
				w.logger.Error("failed to upsert node state", "run_id", run.ID, "error", err)
			}
			if err := w.events.PublishNodeState(ctx, run.WorkspaceID, ns); err != nil {
				w.logger.Warn("failed to publish node_state", "run_id", run.ID, "error", err)
			}
		},

		NodeCreated: func(node map[string]any) {
			if err := w.events.PublishNodeCreated(ctx, run.WorkspaceID, run.ID, node); err != nil {
				w.logger.Warn("failed to publish node_created", "run_id", run.ID, "error", err)
			}
		},

		EdgeCreated: func(edge map[string]any) {
			if err := w.events.PublishEdgeCreated(ctx, run.WorkspaceID, run.ID, edge); err != nil {
				w.logger.Warn("failed to publish edge_created", "run_id", run.ID, "error", err)
			}
		},

		Reasoning: func(s pipeline.ReasoningStep) {
			stepNumber++
			trace := &domain.ReasoningTrace{
				RunID:       run.ID,
				StepNumber:  stepNumber,
				StepType:    s.StepType,
				Content:     s.Content,
				AgentName:   s.AgentName,
				StartedAt:   s.StartedAt,
				CompletedAt: s.CompletedAt,
				DurationMS:  s.CompletedAt.Sub(s.StartedAt).Milliseconds(),
			}
			if err := w.traces.Append(ctx, trace); err != nil {
				w.logger.Error("failed to append trace step", "run_id", run.ID, "error", err)
			}
			if err := w.events.PublishReasoningStep(ctx, run.WorkspaceID, trace); err != nil {
				w.logger.Warn("failed to publish reasoning_step", "run_id", run.ID, "error", err)
			}
		},

		Chunk: func(c domain.StreamChunk) {
			if err := w.events.PublishChunk(ctx, run.ID, &c); err != nil {
				w.logger.Warn("failed to publish chunk", "run_id", run.ID, "error", err)
			}
			if c.IsComplete {
				w.logger.Debug("stream complete", "run_id", run.ID, "step_type", c.StepType)
			}
		},
	}
}

// finishCompleted фиксирует успешный run: статус, action-сообщение,
// терминальное событие.
func (w *Worker) finishCompleted(ctx context.Context, run *domain.Run, out *pipeline.Output) {
	run.MarkCompleted(out.Summary, out.Result)
	run.CreatedNodes = out.Nodes
	run.CreatedEdges = out.Edges

	if err := w.runs.Update(ctx, run); err != nil {
		w.logger.Error("failed to mark run completed", "run_id", run.ID, "error", err)
		return
	}

	msg := domain.NewMessage(run.ID, domain.MessageRoleAction, out.Summary, out.Result)
	if err := w.messages.Create(ctx, msg); err != nil {
		w.logger.Error("failed to create action message", "run_id", run.ID, "error", err)
	}

	w.publishCompleted(ctx, run)

	w.logger.Info("run completed",
		"run_id", run.ID,
		"nodes", len(run.CreatedNodes),
		"edges", len(run.CreatedEdges),
	)
}

// finishFailed фиксирует упавший run. Retry нет.
func (w *Worker) finishFailed(ctx context.Context, run *domain.Run, execErr error) {
	stage := pipeline.StageExecution
	var perr *pipeline.Error
	if errors.As(execErr, &perr) {
		stage = perr.Stage
	}

	run.MarkFailed(execErr.Error())
	if err := w.runs.Update(ctx, run); err != nil {
		w.logger.Error("failed to mark run failed", "run_id", run.ID, "error", err)
		return
	}

	msg := domain.NewMessage(run.ID, domain.MessageRoleAction, run.Error, nil)
	if err := w.messages.Create(ctx, msg); err != nil {
		w.logger.Error("failed to create action message", "run_id", run.ID, "error", err)
	}

	w.publishCompleted(ctx, run)

	w.logger.Warn("run failed",
		"run_id", run.ID,
		"stage", stage,
		"error", execErr,
	)
}

// publishProgress публикует run_progress. Ошибка публикации не фатальна:
// состояние уже в реестре, клиент восстановит его через snapshot.
func (w *Worker) publishProgress(ctx context.Context, run *domain.Run) {
	if err := w.events.PublishRunProgress(ctx, run); err != nil {
		w.logger.Warn("failed to publish run_progress", "run_id", run.ID, "error", err)
	}
}

// publishCompleted публикует терминальное run_completed.
func (w *Worker) publishCompleted(ctx context.Context, run *domain.Run) {
	if err := w.events.PublishRunCompleted(ctx, run); err != nil {
		w.logger.Warn("failed to publish run_completed", "run_id", run.ID, "error", err)
	}
}
