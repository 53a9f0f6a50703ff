package store

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenStore keeps the token in process memory.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore builds an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// MemoryPendingStore keeps the registration draft in process memory.
type MemoryPendingStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	pending *PendingRegistration
	savedAt time.Time
}

// NewMemoryPendingStore builds an in-memory draft store. A non-positive ttl
// keeps drafts until deleted.
func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	return &MemoryPendingStore{ttl: ttl, now: time.Now}
}

func (s *MemoryPendingStore) Load(_ context.Context) (*PendingRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return nil, nil
	}
	if s.ttl > 0 && s.now().Sub(s.savedAt) > s.ttl {
		return nil, nil
	}
	p := *s.pending
	return &p, nil
}

func (s *MemoryPendingStore) Save(_ context.Context, pending PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &pending
	s.savedAt = s.now()
	return nil
}

func (s *MemoryPendingStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}
