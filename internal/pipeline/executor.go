package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// Executor — интерфейс AI-конвейера, выполняющего run целиком.
//
// Execute блокирует до завершения конвейера и возвращает итоговый Output.
// Промежуточные события (прогресс, узлы, шаги рассуждений) конвейер
// отдаёт через колбэки ev по мере выполнения.
//
// Ошибки конвейера возвращаются как *Error с указанием стадии.
type Executor interface {
	Execute(ctx context.Context, in Input, ev *Events) (*Output, error)
}

// Streamer — опциональное расширение Executor для потокового вывода.
//
// ExecuteStream дополнительно отдаёт чанки текста через ev.Chunk.
// Если конвейер не реализует Streamer, воркер использует Execute.
type Streamer interface {
	ExecuteStream(ctx context.Context, in Input, ev *Events) (*Output, error)
}

// Retriever — поиск документов workspace'а для обогащения контекста.
//
// Retrieval — best-effort: ошибка поиска не прерывает run.
type Retriever interface {
	Retrieve(ctx context.Context, in Input) ([]Document, error)
}

// Input — входные данные конвейера, снимок run'а на момент запуска.
type Input struct {
	RunID       uuid.UUID      `json:"run_id"`
	WorkspaceID string         `json:"workspace_id"`
	UserID      string         `json:"user_id"`
	Kind        string         `json:"run_kind"`
	Prompt      string         `json:"prompt"`
	Context     map[string]any `json:"context,omitempty"`

	// Documents — результат retrieval. Может быть пустым.
	Documents []Document `json:"documents,omitempty"`
}

// Output — итоговый результат конвейера.
type Output struct {
	Summary string           `json:"summary"`
	Result  map[string]any   `json:"result,omitempty"`
	Nodes   []map[string]any `json:"nodes,omitempty"`
	Edges   []map[string]any `json:"edges,omitempty"`
}

// Document — документ, найденный retrieval'ом.
type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}
