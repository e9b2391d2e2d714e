package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Subscriber создаёт подписки на каналы событий.
type Subscriber struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewSubscriber создаёт новый Subscriber.
func NewSubscriber(rdb *redis.Client, logger *slog.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, logger: logger}
}

// Subscription — активная подписка на один канал.
//
// Events отдаёт payload'ы в порядке публикации. Канал закрывается после
// Close или при потере соединения.
type Subscription struct {
	pubsub *redis.PubSub
	events chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

// Subscribe подписывается на канал и начинает доставку событий.
//
// Подписка подтверждается брокером до возврата: события, опубликованные
// после возврата Subscribe, гарантированно попадают в Events.
func (s *Subscriber) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, channel)

	// Дожидаемся подтверждения подписки
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	go sub.forward(pubsub.Channel(), s.logger, channel)

	s.logger.Debug("subscribed", "channel", channel)
	return sub, nil
}

// forward перекачивает сообщения из pub/sub в канал подписки, сохраняя
// порядок доставки. Отправка медленному потребителю может заблокироваться
// на полном буфере, поэтому каждый шаг снимается через done: Close
// завершает forward, даже если Events никто уже не читает.
func (sub *Subscription) forward(src <-chan *redis.Message, logger *slog.Logger, channel string) {
	defer close(sub.events)

	for {
		select {
		case msg, ok := <-src:
			if !ok {
				logger.Debug("subscription drained", "channel", channel)
				return
			}
			select {
			case sub.events <- []byte(msg.Payload):
			case <-sub.done:
				return
			}
		case <-sub.done:
			return
		}
	}
}

// Events возвращает канал входящих payload'ов.
func (sub *Subscription) Events() <-chan []byte {
	return sub.events
}

// Close отписывается от канала и освобождает подписку.
// Повторный Close безопасен.
func (sub *Subscription) Close() error {
	sub.closeOnce.Do(func() { close(sub.done) })
	return sub.pubsub.Close()
}
