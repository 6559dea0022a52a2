package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 500 * time.Millisecond

// RedisLoginNotifier publishes user-login events on a pub/sub channel that the
// real-time relay subscribes to. Delivery is at-most-once.
type RedisLoginNotifier struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisLoginNotifier(client redis.UniversalClient, channel string) *RedisLoginNotifier {
	if channel == "" {
		channel = "user-login"
	}
	return &RedisLoginNotifier{client: client, channel: channel}
}

func (n *RedisLoginNotifier) NotifyLogin(ctx context.Context, event ports.LoginEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// bounded independently of the request deadline
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return n.client.Publish(pubCtx, n.channel, payload).Err()
}
