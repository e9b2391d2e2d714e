package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Synapse/internal/domain"
)

// MessageRepo — репозиторий сообщений run'а (append-only).
type MessageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepo создаёт новый MessageRepo.
func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Create добавляет сообщение. Сообщения никогда не обновляются.
func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	payloadJSON, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO messages (id, run_id, role, content, structured_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		msg.ID,
		msg.RunID,
		msg.Role,
		msg.Content,
		payloadJSON,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListByRun возвращает сообщения run'а в порядке создания.
func (r *MessageRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, run_id, role, content, structured_payload, created_at
		FROM messages
		WHERE run_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var payloadJSON []byte

		if err := rows.Scan(&msg.ID, &msg.RunID, &msg.Role, &msg.Content, &payloadJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &msg.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
