package redis

import (
	"context"
	"encoding/json"

	"dialog/internal/core/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus carries envelopes over Redis Pub/Sub. One PUBLISH per
// channel; per-user delivery is just the user's private channel. Publishing
// gives no delivery guarantee — durability is the outbox's job.
type RedisEventBus struct {
	rdb *redis.Client
}

func NewRedisEventBus(rdb *redis.Client) *RedisEventBus {
	return &RedisEventBus{rdb: rdb}
}

func (b *RedisEventBus) Publish(ctx context.Context, channel string, env domain.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, raw).Err()
}

func (b *RedisEventBus) PublishToUser(ctx context.Context, userID uuid.UUID, env domain.Envelope) error {
	return b.Publish(ctx, domain.UserChannel(userID), env)
}

// PublishRaw forwards an already-marshalled envelope, used by the outbox
// dispatcher which stores envelopes as bytes.
func (b *RedisEventBus) PublishRaw(ctx context.Context, channel string, raw []byte) error {
	return b.rdb.Publish(ctx, channel, raw).Err()
}

// Subscribe bridges a channel onto handler until ctx is done. The
// go-redis PubSub channel handles reconnects internally.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string, handler func(data []byte)) error {
	pubsub := b.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return nil
}
