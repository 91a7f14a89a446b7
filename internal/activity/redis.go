package activity

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder appends events to a redis stream.
type RedisRecorder struct {
	client *redis.Client
	stream string
}

func NewRedisRecorder(client *redis.Client, stream string) *RedisRecorder {
	return &RedisRecorder{client: client, stream: stream}
}

func (r *RedisRecorder) Record(ctx context.Context, event Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"name":    event.Name,
			"payload": string(body),
		},
	}).Err()
}
