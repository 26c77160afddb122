package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "audit:events"

// RedisStream mirrors events onto a Redis stream for downstream consumers.
type RedisStream struct {
	Client *redis.Client
	Stream string
	MaxLen int64
}

func (r *RedisStream) Write(ctx context.Context, e Event) error {
	stream := r.Stream
	if stream == "" {
		stream = DefaultStream
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit stream: marshal failed: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"type": e.EventType, "event": string(b)},
	}
	if r.MaxLen > 0 {
		args.MaxLen = r.MaxLen
		args.Approx = true
	}
	if err := r.Client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("audit stream: xadd failed: %w", err)
	}
	return nil
}
