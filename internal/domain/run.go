package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — одна единица асинхронной AI-работы, запрошенная пользователем
// для workspace.
//
// Run создаётся REST-слоем в статусе queued, затем воркер ведёт его по
// state machine (см. RunStatus). Мутируют run только Worker Loop и
// Cancellation Controller; ядро системы runs не удаляет.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — workspace, к которому относится run.
	WorkspaceID string `json:"workspace_id"`

	// UserID — пользователь, запросивший run.
	UserID string `json:"user_id"`

	// Kind — тип запрошенной работы (explore, prove, summarize и т.п.).
	Kind string `json:"run_kind"`

	// Prompt — пользовательский запрос.
	Prompt string `json:"prompt"`

	// Context — дополнительный контекст запроса.
	Context map[string]any `json:"context,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Progress — прогресс выполнения 0..100.
	// Монотонно неубывающий, пока run не терминален.
	Progress int `json:"progress"`

	// CurrentStep — человекочитаемое описание текущего шага.
	CurrentStep string `json:"current_step,omitempty"`

	// Result — произвольный результат выполнения.
	Result map[string]any `json:"result,omitempty"`

	// Summary — краткое описание результата.
	Summary string `json:"summary,omitempty"`

	// Error — текст ошибки, если run завершился failed.
	Error string `json:"error,omitempty"`

	// CreatedNodes — визуальные узлы, предложенные run'ом.
	CreatedNodes []map[string]any `json:"created_nodes,omitempty"`

	// CreatedEdges — визуальные рёбра, предложенные run'ом.
	CreatedEdges []map[string]any `json:"created_edges,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt — время перехода в терминальный статус.
	// Nil, пока run не завершён.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRun создаёт run в статусе queued с нулевым прогрессом.
func NewRun(workspaceID, userID, kind, prompt string, context map[string]any) *Run {
	return &Run{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Kind:        kind,
		Prompt:      prompt,
		Context:     context,
		Status:      RunStatusQueued,
		Progress:    0,
		CreatedAt:   time.Now().UTC(),
	}
}

// IsFinished возвращает true, если run завершён (в любом терминальном статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// AdvanceProgress обновляет progress и current_step.
//
// Progress монотонно неубывающий: значение меньше текущего игнорируется.
// На терминальном run вызов не имеет эффекта.
func (r *Run) AdvanceProgress(progress int, step string) {
	if r.IsFinished() {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > r.Progress {
		r.Progress = progress
	}
	if step != "" {
		r.CurrentStep = step
	}
}

// MarkRunning переводит run в статус running.
func (r *Run) MarkRunning() {
	r.Status = RunStatusRunning
}

// MarkCompleted переводит run в статус completed с результатом.
// Progress фиксируется на 100.
func (r *Run) MarkCompleted(summary string, result map[string]any) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.Progress = 100
	r.Summary = summary
	r.Result = result
	r.CompletedAt = &now
}

// MarkFailed переводит run в статус failed с ошибкой.
func (r *Run) MarkFailed(errMsg string) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.Error = errMsg
	r.CompletedAt = &now
}

// MarkCancelled переводит run в статус cancelled.
func (r *Run) MarkCancelled() {
	now := time.Now().UTC()
	r.Status = RunStatusCancelled
	r.CompletedAt = &now
}
