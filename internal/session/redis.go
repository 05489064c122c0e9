package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// storePrefix — keyspace записей сессий; не пересекается с keyspace'ами
// session-track и decoded-token.
const storePrefix = "session:store:"

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore создаёт хранилище сессий поверх Redis.
// Срок жизни записи совпадает с абсолютным сроком жизни cookie.
func NewRedisStore(redisURL string) (Store, error) {
	const op = "session.NewRedisStore"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisStore{rdb: rdb}, nil
}

func key(id string) string { return storePrefix + id }

func (s *redisStore) Create(ctx context.Context, sess *Session) error {
	const op = "session.redis.Create"

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: session already expired", op)
	}

	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.SetEx(ctx, key(sess.ID), string(b), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *redisStore) Read(ctx context.Context, id string) (*Session, error) {
	const op = "session.redis.Read"

	value, err := s.rdb.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(value), &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &sess, nil
}

// Attach — read-modify-write с сохранением абсолютного срока жизни сессии.
func (s *redisStore) Attach(ctx context.Context, id string, account *models.SessionAccount) error {
	const op = "session.redis.Attach"

	sess, err := s.Read(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sess.Account = account

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.SetEx(ctx, key(id), string(b), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *redisStore) Destroy(ctx context.Context, id string) error {
	const op = "session.redis.Destroy"

	if err := s.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
