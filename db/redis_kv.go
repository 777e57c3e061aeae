package db

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RedisKV keeps each collection as a single Redis string value
type RedisKV struct {
	Client *redis.Client
	log    *zap.Logger
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client *redis.Client, logger *zap.Logger) *RedisKV {
	return &RedisKV{Client: client, log: logger}
}

// Load fetches the blob stored under key
func (s *RedisKV) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Not found is not an error for callers
		}
		s.log.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false, errors.Wrapf(err, "failed to get %s from Redis", key)
	}
	return data, true, nil
}

// Save replaces the blob stored under key
func (s *RedisKV) Save(ctx context.Context, key string, value []byte) error {
	if err := s.Client.Set(ctx, key, value, 0).Err(); err != nil {
		s.log.Error("redis set failed", zap.String("key", key), zap.Error(err))
		return errors.Wrapf(err, "failed to set %s in Redis", key)
	}
	return nil
}

func (s *RedisKV) Close() error {
	return s.Client.Close()
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Ping Redis to check connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "could not connect to Redis at %s", addr)
	}

	logger.Info("connected to Redis", zap.String("addr", addr), zap.Int("db", db))
	return rdb, nil
}
