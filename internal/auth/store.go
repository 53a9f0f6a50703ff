package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound is returned when a key is missing or expired.
var ErrCodeNotFound = errors.New("code not found")

// CodeStore keeps short-lived values: OTPs, verified-registration markers
// and reset tokens.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value and deletes it in one step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCodeStore is a CodeStore for development and tests.
type MemoryCodeStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryCodeStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key)
}

func (s *MemoryCodeStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, err := s.lookup(key)
	delete(s.entries, key)
	return value, err
}

func (s *MemoryCodeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryCodeStore) lookup(key string) (string, error) {
	entry, ok := s.entries[key]
	if !ok {
		return "", ErrCodeNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", ErrCodeNotFound
	}
	return entry.value, nil
}

// RedisCodeStore keeps codes in Redis under a common prefix.
type RedisCodeStore struct {
	cache  *redis.Client
	prefix string
}

func NewRedisCodeStore(cache *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{cache: cache, prefix: "authstub:v1:"}
}

func (s *RedisCodeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.cache.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.cache.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load code: %w", err)
	}
	return value, nil
}

func (s *RedisCodeStore) Take(ctx context.Context, key string) (string, error) {
	value, err := s.cache.GetDel(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("take code: %w", err)
	}
	return value, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	if err := s.cache.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}
