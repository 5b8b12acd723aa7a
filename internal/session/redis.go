package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contract_approval/backend/internal/models"
)

// RedisStore keeps one JSON value per session with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb, ttl: ttl}
}

func key(id string) string {
	return fmt.Sprintf("session:%s:context", id)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (models.ConversationContext, error) {
	val, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ConversationContext{}, nil
	}
	if err != nil {
		return models.ConversationContext{}, fmt.Errorf("load session: %w", err)
	}
	var c models.ConversationContext
	if err := json.Unmarshal(val, &c); err != nil {
		return models.ConversationContext{}, fmt.Errorf("decode session: %w", err)
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, c models.ConversationContext) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
