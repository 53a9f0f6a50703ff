package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseCodeStore(t *testing.T, store CodeStore, expire func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Set(ctx, "otp:login:a@b.co", "123456", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := store.Get(ctx, "otp:login:a@b.co"); err != nil || v != "123456" {
		t.Fatalf("get: %q %v", v, err)
	}
	if v, err := store.Take(ctx, "otp:login:a@b.co"); err != nil || v != "123456" {
		t.Fatalf("take: %q %v", v, err)
	}
	if _, err := store.Take(ctx, "otp:login:a@b.co"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("second take should miss, got %v", err)
	}

	_ = store.Set(ctx, "short", "x", time.Second)
	expire(2 * time.Second)
	if _, err := store.Get(ctx, "short"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expired value returned: %v", err)
	}

	_ = store.Set(ctx, "gone", "x", time.Minute)
	if err := store.Delete(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "gone"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("deleted value returned: %v", err)
	}
}

func TestMemoryCodeStore(t *testing.T) {
	store := NewMemoryCodeStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	exerciseCodeStore(t, store, func(d time.Duration) { now = now.Add(d) })
}

func TestRedisCodeStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	exerciseCodeStore(t, NewRedisCodeStore(cache), mr.FastForward)

	_ = NewRedisCodeStore(cache).Set(context.Background(), "k", "v", time.Minute)
	if !mr.Exists("authstub:v1:k") {
		t.Fatal("expected prefixed key")
	}
}
