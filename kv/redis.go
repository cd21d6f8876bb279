package kv

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements Store on a direct Redis connection, for
// deployments that run their own instance instead of the serverless
// HTTP store.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisStore) Scan(ctx context.Context, cursor, match string, count int) ([]string, string, error) {
	from, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return nil, "", err
	}

	keys, next, err := r.client.Scan(ctx, from, match, int64(count)).Result()
	if err != nil {
		return nil, "", err
	}

	return keys, strconv.FormatUint(next, 10), nil
}

func (r *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
