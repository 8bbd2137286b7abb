// internal/adapters/backup/redis.go
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// DefaultStateKey is used when no key is configured.
const DefaultStateKey = "crous-notifier:state"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisMirror keeps the state document under a single key.
type RedisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(dialCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis (ping failed): %w", err)
	}
	return client, nil
}

func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	if key == "" {
		key = DefaultStateKey
	}
	return &RedisMirror{client: client, key: key}
}

func (r *RedisMirror) Pull(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: get %q: %w", r.key, err)
	}
	return val, nil
}

func (r *RedisMirror) Push(ctx context.Context, payload []byte) error {
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", r.key, err)
	}
	return nil
}
