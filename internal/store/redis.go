package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps the token in Redis without expiry.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

// NewRedisTokenStore stores the token under TokenKey, optionally namespaced
// by profile so several CLI profiles can share one Redis.
func NewRedisTokenStore(client *redis.Client, profile string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: namespaced(TokenKey, profile)}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.key, token, 0).Err()
}

func (s *RedisTokenStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// RedisPendingStore keeps the registration draft as JSON with a TTL.
type RedisPendingStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisPendingStore stores drafts under PendingKey with the given TTL.
func NewRedisPendingStore(client *redis.Client, profile string, ttl time.Duration) *RedisPendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &RedisPendingStore{client: client, key: namespaced(PendingKey, profile), ttl: ttl}
}

func (s *RedisPendingStore) Load(ctx context.Context) (*PendingRegistration, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	var out PendingRegistration
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: pending registration: %v", ErrCorrupt, err)
	}
	return &out, nil
}

func (s *RedisPendingStore) Save(ctx context.Context, pending PendingRegistration) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, s.ttl).Err()
}

func (s *RedisPendingStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func namespaced(key, profile string) string {
	if profile == "" {
		return key
	}
	return key + ":" + profile
}
