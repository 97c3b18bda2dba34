package cache

import (
	"context"
	"errors"
	"time"

	"github.com/chaos-io/maskeraser/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "removal:"

// RedisCache 缓存去除结果，key 由调用方生成
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg *config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get 未命中时返回 ok=false 且 err=nil
func (s *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisCache) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err()
}

func (s *RedisCache) Close() error {
	return s.client.Close()
}
