package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Synapse/internal/domain"
)

// Run DTOs

// CreateRunRequest — запрос на создание run.
type CreateRunRequest struct {
	UserID  string         `json:"user_id"`
	RunKind string         `json:"run_kind,omitempty"`
	Prompt  string         `json:"prompt"`
	Context map[string]any `json:"context,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID           uuid.UUID        `json:"id"`
	WorkspaceID  string           `json:"workspace_id"`
	UserID       string           `json:"user_id"`
	RunKind      string           `json:"run_kind"`
	Prompt       string           `json:"prompt"`
	Context      map[string]any   `json:"context,omitempty"`
	Status       string           `json:"status"`
	Progress     int              `json:"progress"`
	CurrentStep  string           `json:"current_step,omitempty"`
	Result       map[string]any   `json:"result,omitempty"`
	Summary      string           `json:"summary,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreatedNodes []map[string]any `json:"created_nodes,omitempty"`
	CreatedEdges []map[string]any `json:"created_edges,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:           r.ID,
		WorkspaceID:  r.WorkspaceID,
		UserID:       r.UserID,
		RunKind:      r.Kind,
		Prompt:       r.Prompt,
		Context:      r.Context,
		Status:       string(r.Status),
		Progress:     r.Progress,
		CurrentStep:  r.CurrentStep,
		Result:       r.Result,
		Summary:      r.Summary,
		Error:        r.Error,
		CreatedNodes: r.CreatedNodes,
		CreatedEdges: r.CreatedEdges,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

// RunDetailResponse — run вместе с его лентой сообщений.
type RunDetailResponse struct {
	RunResponse
	Messages []MessageResponse `json:"messages"`
}

// Message DTOs

// AppendMessageRequest — запрос на добавление сообщения.
// Role всегда user: action-сообщения создаёт только воркер.
type AppendMessageRequest struct {
	Content string         `json:"content"`
	Payload map[string]any `json:"structured_payload,omitempty"`
}

// MessageResponse — ответ с сообщением.
type MessageResponse struct {
	ID        uuid.UUID      `json:"id"`
	RunID     uuid.UUID      `json:"run_id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Payload   map[string]any `json:"structured_payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MessageFromDomain конвертирует domain.Message в MessageResponse.
func MessageFromDomain(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		RunID:     m.RunID,
		Role:      string(m.Role),
		Content:   m.Content,
		Payload:   m.Payload,
		CreatedAt: m.CreatedAt,
	}
}

// NodeState DTOs

// NodeStateResponse — ответ с состоянием узла.
type NodeStateResponse struct {
	RunID      uuid.UUID      `json:"run_id"`
	NodeID     string         `json:"node_id,omitempty"`
	TempNodeID string         `json:"temp_node_id,omitempty"`
	State      string         `json:"state"`
	StateData  map[string]any `json:"state_data,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NodeStateFromDomain конвертирует domain.NodeState в NodeStateResponse.
func NodeStateFromDomain(ns domain.NodeState) NodeStateResponse {
	return NodeStateResponse{
		RunID:      ns.RunID,
		NodeID:     ns.NodeID,
		TempNodeID: ns.TempNodeID,
		State:      string(ns.State),
		StateData:  ns.StateData,
		UpdatedAt:  ns.UpdatedAt,
	}
}

// Trace DTOs

// TraceResponse — ответ с шагом рассуждений.
type TraceResponse struct {
	RunID       uuid.UUID `json:"run_id"`
	StepNumber  int       `json:"step_number"`
	StepType    string    `json:"step_type"`
	Content     string    `json:"content"`
	AgentName   string    `json:"agent_name,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// TraceFromDomain конвертирует domain.ReasoningTrace в TraceResponse.
func TraceFromDomain(t domain.ReasoningTrace) TraceResponse {
	return TraceResponse{
		RunID:       t.RunID,
		StepNumber:  t.StepNumber,
		StepType:    t.StepType,
		Content:     t.Content,
		AgentName:   t.AgentName,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		DurationMS:  t.DurationMS,
	}
}
