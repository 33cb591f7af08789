package xredis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the key does not exist.
var ErrNotFound = errors.New("key not found")

type Client interface {
	Ping(ctx context.Context) error

	// Single object
	SetObj(ctx context.Context, key string, obj any, ttl time.Duration) error

	// GetDelObj reads and deletes the key atomically.
	GetDelObj(ctx context.Context, key string, v any) error
}

type client struct {
	redisClient *redis.Client
}

func NewClient(ctx context.Context) (*client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:            xcontext.Configs(ctx).Redis.Addr,
		MaxRetries:      5,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		PoolFIFO:        false,
		PoolSize:        5,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &client{redisClient: redisClient}, nil
}

func (c *client) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

func (c *client) SetObj(ctx context.Context, key string, obj any, ttl time.Duration) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	return c.redisClient.Set(ctx, key, b, ttl).Err()
}

func (c *client) GetDelObj(ctx context.Context, key string, v any) error {
	b, err := c.redisClient.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}

	return json.Unmarshal(b, v)
}
