package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect устанавливает соединение с Redis и проверяет его ping'ом.
//
// Переподключение при разрыве go-redis выполняет сам, отдельный
// supervisor не нужен.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to Redis")
	return client, nil
}

// DefaultURL возвращает URL по умолчанию для локальной разработки.
func DefaultURL() string {
	return "redis://localhost:6379/0"
}
