package pipeline

import (
	"time"

	"github.com/shaiso/Synapse/internal/domain"
)

// Events — колбэки для промежуточных событий конвейера.
//
// Любой колбэк может быть nil — используйте Emit*-методы, они
// проверяют это сами. Колбэки вызываются из горутины конвейера
// строго последовательно.
type Events struct {
	Progress    func(progress int, step string)
	NodeState   func(u NodeUpdate)
	NodeCreated func(node map[string]any)
	EdgeCreated func(edge map[string]any)
	Reasoning   func(s ReasoningStep)
	Chunk       func(c domain.StreamChunk)
}

// NodeUpdate — изменение состояния визуального элемента.
type NodeUpdate struct {
	NodeID     string               `json:"node_id,omitempty"`
	TempNodeID string               `json:"temp_node_id,omitempty"`
	State      domain.NodeStateKind `json:"state"`
	StateData  map[string]any       `json:"state_data,omitempty"`
}

// ReasoningStep — завершённый шаг рассуждений конвейера.
// Номер шага присваивает воркер при записи.
type ReasoningStep struct {
	StepType    string    `json:"step_type"`
	Content     string    `json:"content"`
	AgentName   string    `json:"agent_name,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

func (e *Events) EmitProgress(progress int, step string) {
	if e != nil && e.Progress != nil {
		e.Progress(progress, step)
	}
}

func (e *Events) EmitNodeState(u NodeUpdate) {
	if e != nil && e.NodeState != nil {
		e.NodeState(u)
	}
}

func (e *Events) EmitNodeCreated(node map[string]any) {
	if e != nil && e.NodeCreated != nil {
		e.NodeCreated(node)
	}
}

func (e *Events) EmitEdgeCreated(edge map[string]any) {
	if e != nil && e.EdgeCreated != nil {
		e.EdgeCreated(edge)
	}
}

func (e *Events) EmitReasoning(s ReasoningStep) {
	if e != nil && e.Reasoning != nil {
		e.Reasoning(s)
	}
}

func (e *Events) EmitChunk(c domain.StreamChunk) {
	if e != nil && e.Chunk != nil {
		e.Chunk(c)
	}
}
