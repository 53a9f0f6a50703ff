package store

import (
	"context"
	"fmt"

	"github.com/estate-link/estate_link/internal/config"
	"github.com/estate-link/estate_link/internal/infra"
)

// Backends is the token and draft storage selected by configuration.
type Backends struct {
	Tokens  TokenStore
	Pending PendingStore
	closers []func()
}

// Close releases any connections opened by Open.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Open builds the stores named by cfg.TokenStore. Drafts live next to the
// token where the backend supports expiry, and in the state dir otherwise.
func Open(ctx context.Context, cfg config.Client) (*Backends, error) {
	b := &Backends{}
	switch cfg.TokenStore {
	case config.TokenStoreMemory:
		b.Tokens = NewMemoryTokenStore()
		b.Pending = NewMemoryPendingStore(cfg.PendingTTL)

	case config.TokenStoreFile:
		tokens, err := NewFileTokenStore(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		pending, err := NewFilePendingStore(cfg.StateDir, cfg.PendingTTL)
		if err != nil {
			return nil, err
		}
		b.Tokens, b.Pending = tokens, pending

	case config.TokenStoreRedis:
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { client.Close() })
		b.Tokens = NewRedisTokenStore(client, cfg.Profile)
		b.Pending = NewRedisPendingStore(client, cfg.Profile, cfg.PendingTTL)

	case config.TokenStorePostgres:
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		tokens := NewPostgresTokenStore(pool, cfg.Profile)
		if err := tokens.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		pending, err := NewFilePendingStore(cfg.StateDir, cfg.PendingTTL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Tokens, b.Pending = tokens, pending

	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
	return b, nil
}
