package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Synapse/internal/domain"
)

// ErrMalformedJob — payload из очереди не парсится в Job.
// Воркер логирует такой job и отбрасывает, не падая.
var ErrMalformedJob = errors.New("malformed job payload")

// Queue — очередь jobs поверх Redis-списка.
//
// Enqueue — атомарный LPUSH, Dequeue — блокирующий BRPOP. Брокер
// гарантирует, что каждый job достаётся ровно одним воркером, но job,
// взятый упавшим воркером, теряется: redelivery нет.
type Queue struct {
	rdb    *redis.Client
	key    string
	logger *slog.Logger
}

// NewQueue создаёт очередь поверх списка key.
func NewQueue(rdb *redis.Client, key string, logger *slog.Logger) *Queue {
	if key == "" {
		key = QueueJobs
	}
	return &Queue{rdb: rdb, key: key, logger: logger}
}

// Enqueue атомарно добавляет job в очередь.
func (q *Queue) Enqueue(ctx context.Context, job *domain.Job) error {
	payload, err := marshalJob(job)
	if err != nil {
		return err
	}

	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.Debug("job enqueued",
		"run_id", job.RunID,
		"workspace_id", job.WorkspaceID,
		"run_kind", job.Kind,
	)
	return nil
}

// Dequeue блокируется до timeout и возвращает не более одного job.
//
// По истечении timeout возвращает (nil, nil) — воркер использует это,
// чтобы проверить сигнал остановки между итерациями. Ошибки брокера
// возвращаются вызывающему; нераспарсенный payload — ErrMalformedJob.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}

	// BRPOP возвращает пару [key, payload]
	if len(res) != 2 {
		return nil, fmt.Errorf("%w: unexpected brpop reply of %d elements", ErrMalformedJob, len(res))
	}

	job, err := unmarshalJob([]byte(res[1]))
	if err != nil {
		return nil, err
	}

	q.logger.Debug("job dequeued", "run_id", job.RunID)
	return job, nil
}

// Len возвращает текущую длину очереди.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// marshalJob сериализует job в JSON-конверт очереди.
func marshalJob(job *domain.Job) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return payload, nil
}

// unmarshalJob разбирает JSON-конверт очереди.
func unmarshalJob(payload []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &job, nil
}
