package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReasoningTrace — один шаг аудиторского лога рассуждений run'а.
//
// Шаги образуют упорядоченную append-only последовательность: StepNumber
// строго возрастает в пределах run'а, записи не мутируются после вставки.
type ReasoningTrace struct {
	// RunID — run, к которому относится шаг.
	RunID uuid.UUID `json:"run_id"`

	// StepNumber — порядковый номер шага (строго возрастает per run).
	StepNumber int `json:"step_number"`

	// StepType — тип шага (analysis, generation, verification и т.п.).
	StepType string `json:"step_type"`

	// Content — содержимое шага.
	Content string `json:"content"`

	// AgentName — имя агента, выполнившего шаг.
	AgentName string `json:"agent_name,omitempty"`

	// StartedAt — время начала шага.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt — время завершения шага.
	CompletedAt time.Time `json:"completed_at"`

	// DurationMS — длительность шага в миллисекундах.
	DurationMS int64 `json:"duration_ms"`
}
