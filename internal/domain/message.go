package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole — автор сообщения в ленте run'а.
type MessageRole string

const (
	// MessageRoleUser — сообщение, добавленное пользователем через REST.
	MessageRoleUser MessageRole = "user"

	// MessageRoleAction — сообщение, созданное воркером об итоге работы.
	MessageRoleAction MessageRole = "action"
)

// Message — append-only запись в чат/лог run'а.
//
// Сообщения никогда не мутируются после создания.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID uuid.UUID `json:"id"`

	// RunID — run, к которому относится сообщение.
	RunID uuid.UUID `json:"run_id"`

	// Role — автор сообщения (user или action).
	Role MessageRole `json:"role"`

	// Content — текст сообщения.
	Content string `json:"content"`

	// Payload — произвольные структурированные данные.
	Payload map[string]any `json:"structured_payload,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage создаёт сообщение для run'а.
func NewMessage(runID uuid.UUID, role MessageRole, content string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New(),
		RunID:     runID,
		Role:      role,
		Content:   content,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
