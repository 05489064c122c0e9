// cache предоставляет key-value абстракцию с истекающими записями
// и сканированием ключей по glob-паттерну поверх Redis.
//
// Сервис держит в кэше два независимых keyspace'а:
//   - session-track (session:token-track:*) — привязка сессии к токену;
//   - decoded-token (session:token-decoded:*) — проверенные payload'ы токенов.
//
// Set добавляет к TTL небольшой случайный джиттер, чтобы развести
// коррелированные волны истечения ключей. SetJSON джиттер НЕ добавляет:
// запись decoded-token кэша не должна пережить подписанный exp токена.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache — контракт key-value кэша, который использует ядро сервиса.
type Cache interface {
	// Set сохраняет строковое значение с TTL (+джиттер).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	// GetMany возвращает значения в порядке переданных ключей;
	// отсутствующие ключи дают пустую строку.
	GetMany(ctx context.Context, keys ...string) ([]string, error)
	// SetJSON сериализует значение в JSON и сохраняет с точным TTL (без джиттера).
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	// GetJSON десериализует значение в dst; возвращает false при промахе.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	// Delete удаляет ключи и возвращает число удалённых.
	Delete(ctx context.Context, keys ...string) (int64, error)
	// MatchKeys возвращает ключи, подходящие под glob-паттерн ('*' — произвольные символы).
	MatchKeys(ctx context.Context, pattern string) ([]string, error)
	// Flush очищает базу целиком (тесты/ops).
	Flush(ctx context.Context) error
	// Close закрывает соединение.
	Close() error
}

type redisCache struct {
	rdb *redis.Client
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
func NewRedis(redisURL string) (Cache, error) {
	const op = "cache.NewRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisCache{rdb: rdb}, nil
}

// jitter возвращает случайную добавку к TTL в диапазоне [0, max) секунд.
func jitter(max int) time.Duration {
	return time.Duration(rand.IntN(max)) * time.Second
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.SetEx(ctx, key, value, ttl+jitter(2)).Err()
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (c *redisCache) GetMany(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	values := make([]string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			values[i] = s
		}
	}

	return values, nil
}

func (c *redisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.rdb.SetEx(ctx, key, string(b), ttl).Err()
}

func (c *redisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, err
	}

	return true, nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	return c.rdb.Del(ctx, keys...).Result()
}

// MatchKeys использует SCAN вместо KEYS, чтобы не блокировать Redis
// на больших keyspace'ах.
func (c *redisCache) MatchKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (c *redisCache) Flush(ctx context.Context) error {
	return c.rdb.FlushDB(ctx).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
