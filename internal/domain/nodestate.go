package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodeStateKind — состояние анимации визуального элемента.
type NodeStateKind string

const (
	NodeStateIdle       NodeStateKind = "idle"
	NodeStateGenerating NodeStateKind = "generating"
	NodeStateComplete   NodeStateKind = "complete"
)

// NodeState — состояние визуального элемента для run'а.
//
// Ключ — (RunID, NodeID | TempNodeID). Семантика upsert: повторное
// обновление по тому же ключу перезаписывает предыдущее, история не
// хранится.
type NodeState struct {
	// RunID — run, к которому относится элемент.
	RunID uuid.UUID `json:"run_id"`

	// NodeID — идентификатор постоянного узла.
	// Пустой, если узел ещё не создан (используется TempNodeID).
	NodeID string `json:"node_id,omitempty"`

	// TempNodeID — временный идентификатор узла до его создания.
	TempNodeID string `json:"temp_node_id,omitempty"`

	// State — текущее состояние (idle, generating, complete).
	State NodeStateKind `json:"state"`

	// StateData — произвольные данные состояния.
	StateData map[string]any `json:"state_data,omitempty"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Key возвращает идентификатор узла: NodeID, либо TempNodeID.
func (n *NodeState) Key() string {
	if n.NodeID != "" {
		return n.NodeID
	}
	return n.TempNodeID
}
