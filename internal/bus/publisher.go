package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Synapse/internal/domain"
)

// Publisher публикует события в каналы Redis.
//
// Публикация fire-and-forget: событие получают только подписчики,
// подключённые в момент публикации.
type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(rdb *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

// Publish сериализует событие и публикует его в канал.
func (p *Publisher) Publish(ctx context.Context, channel string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	p.logger.Debug("published event", "channel", channel)
	return nil
}

// PublishRunProgress публикует run_progress в канал workspace'а.
func (p *Publisher) PublishRunProgress(ctx context.Context, run *domain.Run) error {
	return p.Publish(ctx, WorkspaceChannel(run.WorkspaceID), domain.NewRunProgressEvent(run))
}

// PublishRunCompleted публикует терминальное run_completed в канал workspace'а.
func (p *Publisher) PublishRunCompleted(ctx context.Context, run *domain.Run) error {
	return p.Publish(ctx, WorkspaceChannel(run.WorkspaceID), domain.NewRunCompletedEvent(run))
}

// PublishNodeState публикует node_state в канал workspace'а.
func (p *Publisher) PublishNodeState(ctx context.Context, workspaceID string, ns *domain.NodeState) error {
	return p.Publish(ctx, WorkspaceChannel(workspaceID), domain.NewNodeStateEvent(ns))
}

// PublishNodeCreated публикует node_created в канал workspace'а.
func (p *Publisher) PublishNodeCreated(ctx context.Context, workspaceID string, runID uuid.UUID, node map[string]any) error {
	return p.Publish(ctx, WorkspaceChannel(workspaceID), &domain.NodeCreatedEvent{
		EventType: domain.EventNodeCreated,
		RunID:     runID,
		Node:      node,
	})
}

// PublishEdgeCreated публикует edge_created в канал workspace'а.
func (p *Publisher) PublishEdgeCreated(ctx context.Context, workspaceID string, runID uuid.UUID, edge map[string]any) error {
	return p.Publish(ctx, WorkspaceChannel(workspaceID), &domain.EdgeCreatedEvent{
		EventType: domain.EventEdgeCreated,
		RunID:     runID,
		Edge:      edge,
	})
}

// PublishReasoningStep публикует reasoning_step в канал workspace'а.
func (p *Publisher) PublishReasoningStep(ctx context.Context, workspaceID string, trace *domain.ReasoningTrace) error {
	return p.Publish(ctx, WorkspaceChannel(workspaceID), domain.NewReasoningStepEvent(trace))
}

// PublishChunk публикует потоковый фрагмент в run-канал.
func (p *Publisher) PublishChunk(ctx context.Context, runID uuid.UUID, chunk *domain.StreamChunk) error {
	return p.Publish(ctx, RunChannel(runID), chunk)
}
