package domain

import "github.com/google/uuid"

// EventType — дискриминатор событий pub/sub.
type EventType string

// Типы событий workspace-канала.
const (
	EventActiveRun     EventType = "active_run"
	EventRunProgress   EventType = "run_progress"
	EventNodeState     EventType = "node_state"
	EventNodeCreated   EventType = "node_created"
	EventEdgeCreated   EventType = "edge_created"
	EventReasoningStep EventType = "reasoning_step"
	EventRunCompleted  EventType = "run_completed"
)

// ActiveRunEvent — снимок активного run'а, отправляемый клиенту при
// подключении к workspace-комнате. Каналы не хранят историю, поэтому
// snapshot — единственный способ восстановить состояние.
type ActiveRunEvent struct {
	EventType EventType `json:"event_type"`
	Run       *Run      `json:"run"`
}

// NewActiveRunEvent создаёт snapshot-событие для run'а.
func NewActiveRunEvent(run *Run) *ActiveRunEvent {
	return &ActiveRunEvent{EventType: EventActiveRun, Run: run}
}

// RunProgressEvent — событие прогресса run'а.
type RunProgressEvent struct {
	EventType   EventType `json:"event_type"`
	RunID       uuid.UUID `json:"run_id"`
	Status      RunStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"current_step,omitempty"`
}

// NewRunProgressEvent создаёт событие прогресса из текущего состояния run'а.
func NewRunProgressEvent(run *Run) *RunProgressEvent {
	return &RunProgressEvent{
		EventType:   EventRunProgress,
		RunID:       run.ID,
		Status:      run.Status,
		Progress:    run.Progress,
		CurrentStep: run.CurrentStep,
	}
}

// NodeStateEvent — событие изменения состояния визуального элемента.
type NodeStateEvent struct {
	EventType  EventType      `json:"event_type"`
	RunID      uuid.UUID      `json:"run_id"`
	NodeID     string         `json:"node_id,omitempty"`
	TempNodeID string         `json:"temp_node_id,omitempty"`
	State      NodeStateKind  `json:"state"`
	StateData  map[string]any `json:"state_data,omitempty"`
}

// NewNodeStateEvent создаёт событие из состояния узла.
func NewNodeStateEvent(ns *NodeState) *NodeStateEvent {
	return &NodeStateEvent{
		EventType:  EventNodeState,
		RunID:      ns.RunID,
		NodeID:     ns.NodeID,
		TempNodeID: ns.TempNodeID,
		State:      ns.State,
		StateData:  ns.StateData,
	}
}

// NodeCreatedEvent — событие о созданном run'ом узле.
type NodeCreatedEvent struct {
	EventType EventType      `json:"event_type"`
	RunID     uuid.UUID      `json:"run_id"`
	Node      map[string]any `json:"node"`
}

// EdgeCreatedEvent — событие о созданном run'ом ребре.
type EdgeCreatedEvent struct {
	EventType EventType      `json:"event_type"`
	RunID     uuid.UUID      `json:"run_id"`
	Edge      map[string]any `json:"edge"`
}

// ReasoningStepEvent — событие об очередном шаге рассуждения.
type ReasoningStepEvent struct {
	EventType  EventType `json:"event_type"`
	RunID      uuid.UUID `json:"run_id"`
	StepNumber int       `json:"step_number"`
	StepType   string    `json:"step_type"`
	Content    string    `json:"content"`
	AgentName  string    `json:"agent_name,omitempty"`
}

// NewReasoningStepEvent создаёт событие из записи trace.
func NewReasoningStepEvent(t *ReasoningTrace) *ReasoningStepEvent {
	return &ReasoningStepEvent{
		EventType:  EventReasoningStep,
		RunID:      t.RunID,
		StepNumber: t.StepNumber,
		StepType:   t.StepType,
		Content:    t.Content,
		AgentName:  t.AgentName,
	}
}

// RunCompletedEvent — терминальное событие run'а.
// Status — completed, failed или cancelled.
type RunCompletedEvent struct {
	EventType EventType `json:"event_type"`
	RunID     uuid.UUID `json:"run_id"`
	Status    RunStatus `json:"status"`
	Summary   string    `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewRunCompletedEvent создаёт терминальное событие из run'а.
func NewRunCompletedEvent(run *Run) *RunCompletedEvent {
	return &RunCompletedEvent{
		EventType: EventRunCompleted,
		RunID:     run.ID,
		Status:    run.Status,
		Summary:   run.Summary,
		Error:     run.Error,
	}
}

// StreamChunk — фрагмент потокового текста для run-канала.
//
// IsComplete=true — подсказка подписчикам, что поток завершён и канал
// замолкает; доставка фрагментов после этого не гарантируется.
type StreamChunk struct {
	StepType   string `json:"step_type"`
	Text       string `json:"text"`
	IsComplete bool   `json:"is_complete"`
	AgentName  string `json:"agent_name,omitempty"`
}
