package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Synapse/internal/domain"
)

// NodeStateRepo — репозиторий состояний визуальных элементов.
//
// Ключ — (run_id, node_key), где node_key — NodeID либо TempNodeID.
// Повторная запись по тому же ключу перезаписывает предыдущую.
type NodeStateRepo struct {
	pool *pgxpool.Pool
}

// NewNodeStateRepo создаёт новый NodeStateRepo.
func NewNodeStateRepo(pool *pgxpool.Pool) *NodeStateRepo {
	return &NodeStateRepo{pool: pool}
}

// Upsert записывает состояние узла, перезаписывая предыдущее по тому же ключу.
func (r *NodeStateRepo) Upsert(ctx context.Context, ns *domain.NodeState) error {
	dataJSON, err := json.Marshal(ns.StateData)
	if err != nil {
		return fmt.Errorf("marshal state data: %w", err)
	}

	query := `
		INSERT INTO node_states (run_id, node_key, node_id, temp_node_id, state, state_data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, node_key)
		DO UPDATE SET node_id = $3, temp_node_id = $4, state = $5, state_data = $6, updated_at = $7
	`
	_, err = r.pool.Exec(ctx, query,
		ns.RunID,
		ns.Key(),
		nullString(ns.NodeID),
		nullString(ns.TempNodeID),
		ns.State,
		dataJSON,
		ns.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert node state: %w", err)
	}
	return nil
}

// Get возвращает состояние узла по ключу.
func (r *NodeStateRepo) Get(ctx context.Context, runID uuid.UUID, nodeKey string) (*domain.NodeState, error) {
	query := `
		SELECT run_id, node_id, temp_node_id, state, state_data, updated_at
		FROM node_states
		WHERE run_id = $1 AND node_key = $2
	`
	ns, err := scanNodeState(r.pool.QueryRow(ctx, query, runID, nodeKey))
	if err != nil {
		return nil, err
	}
	return ns, nil
}

// ListByRun возвращает все состояния узлов run'а.
func (r *NodeStateRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.NodeState, error) {
	query := `
		SELECT run_id, node_id, temp_node_id, state, state_data, updated_at
		FROM node_states
		WHERE run_id = $1
		ORDER BY updated_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list node states: %w", err)
	}
	defer rows.Close()

	var states []domain.NodeState
	for rows.Next() {
		ns, err := scanNodeState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *ns)
	}
	return states, rows.Err()
}

// scanNodeState сканирует строку в NodeState.
func scanNodeState(row pgx.Row) (*domain.NodeState, error) {
	var ns domain.NodeState
	var nodeID, tempNodeID *string
	var dataJSON []byte

	err := row.Scan(&ns.RunID, &nodeID, &tempNodeID, &ns.State, &dataJSON, &ns.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node state: %w", err)
	}

	if nodeID != nil {
		ns.NodeID = *nodeID
	}
	if tempNodeID != nil {
		ns.TempNodeID = *tempNodeID
	}
	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &ns.StateData); err != nil {
			return nil, fmt.Errorf("unmarshal state data: %w", err)
		}
	}
	return &ns, nil
}
