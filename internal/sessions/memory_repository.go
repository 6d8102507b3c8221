package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps sessions in a map. Used when neither Redis nor
// Mongo is configured; refresh tokens are lost on restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	byRT map[string]*Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byRT: map[string]*Session{}}
}

func (r *MemoryRepository) Create(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	cp := *s
	r.byRT[s.RefreshToken] = &cp
	return nil
}

func (r *MemoryRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byRT[refresh]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byRT, refresh)
	return nil
}
