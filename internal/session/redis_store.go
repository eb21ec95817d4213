package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "admin:session:"

// RedisStore persists each session as a Redis hash with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Load reads the session hash.
func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	values, err := r.client.HGetAll(ctx, redisKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall session %s: %w", id, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return load(id, values).bind(r), nil
}

// Apply writes changes in a single MULTI/EXEC.
func (r *RedisStore) Apply(ctx context.Context, id string, changes Changes) error {
	key := redisKey(id)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if changes.Cleared {
			pipe.Del(ctx, key)
		}
		if len(changes.Set) > 0 {
			args := make([]interface{}, 0, len(changes.Set)*2)
			for field, value := range changes.Set {
				args = append(args, field, value)
			}
			pipe.HSet(ctx, key, args...)
		}
		if len(changes.Deleted) > 0 {
			pipe.HDel(ctx, key, changes.Deleted...)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("session write failed", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("redis apply session %s: %w", id, err)
	}
	return nil
}

// SetIfAbsent runs HSETNX and HGET in one MULTI/EXEC so the returned value is
// the one that won, whichever request wrote it.
func (r *RedisStore) SetIfAbsent(ctx context.Context, id, field, value string) (string, error) {
	key := redisKey(id)
	var stored *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, field, value)
		stored = pipe.HGet(ctx, key, field)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("session write failed", zap.String("session_id", id), zap.Error(err))
		return "", fmt.Errorf("redis setnx session %s: %w", id, err)
	}
	return stored.Val(), nil
}

// Delete removes the session hash.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}

// Purge is a no-op; Redis expires session hashes itself.
func (r *RedisStore) Purge(context.Context) (int, error) {
	return 0, nil
}
