package domain

import (
	"time"

	"github.com/google/uuid"
)

// Job — неизменяемый конверт run'а, сериализуемый в очередь при enqueue.
//
// Job — это снимок, а не живая ссылка: последующие мутации Run не влияют
// на уже поставленный в очередь Job.
type Job struct {
	// RunID — идентификатор run, для которого создан job.
	RunID uuid.UUID `json:"run_id"`

	// WorkspaceID — workspace run'а на момент enqueue.
	WorkspaceID string `json:"workspace_id"`

	// UserID — пользователь, запросивший run.
	UserID string `json:"user_id"`

	// Kind — тип запрошенной работы.
	Kind string `json:"run_kind"`

	// Prompt — пользовательский запрос.
	Prompt string `json:"prompt"`

	// Context — контекст запроса на момент enqueue.
	Context map[string]any `json:"context,omitempty"`

	// EnqueuedAt — время постановки в очередь.
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewJob снимает Job с run'а на момент постановки в очередь.
func NewJob(r *Run) *Job {
	return &Job{
		RunID:       r.ID,
		WorkspaceID: r.WorkspaceID,
		UserID:      r.UserID,
		Kind:        r.Kind,
		Prompt:      r.Prompt,
		Context:     r.Context,
		EnqueuedAt:  time.Now().UTC(),
	}
}
