package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const DefaultRelayTopic = "raftaar:realtime"

// RedisRelay carries envelopes between instances over Redis pub/sub.
type RedisRelay struct {
	rdb   *redis.Client
	topic string
}

func NewRedisRelay(rdb *redis.Client, topic string) *RedisRelay {
	if topic == "" {
		topic = DefaultRelayTopic
	}
	return &RedisRelay{rdb: rdb, topic: topic}
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.topic, payload).Err()
}

// Run subscribes and feeds envelopes into hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	pubsub := r.rdb.Subscribe(ctx, r.topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.topic, err)
	}
	slog.Info("realtime relay subscribed", "topic", r.topic, "origin", hub.Origin())

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
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					slog.Warn("relay message dropped", "error", err.Error())
					continue
				}
				hub.Receive(env)
			}
		}
	}()
	return nil
}
