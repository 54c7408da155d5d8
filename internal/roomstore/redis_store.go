package roomstore

import (
	"context"
	"errors"

	goredis "github.com/go-redis/redis/v8"
	"github.com/keentechcodes/swapwatch/pkg/redis"
)

// RedisStore is the production KV, backed by the same Redis client
// the wallet index uses.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	err := s.client.GetJSON(ctx, key, dest)
	if errors.Is(err, goredis.Nil) {
		return ErrNotFound
	}
	return err
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	return s.client.SetWithExpiry(ctx, key, value, 0)
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}
