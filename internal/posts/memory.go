package posts

import (
	"context"
	"sort"
	"sync"

	"github.com/pulsewire/pulse/internal/models"
)

// MemoryRepository is an in-process Repository for unit tests and the dev
// server when MongoDB is not configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.Post
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]*models.Post{}}
}

func (r *MemoryRepository) Insert(ctx context.Context, p *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.store[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.store[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) List(ctx context.Context, newestFirst bool) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Post, 0, len(r.store))
	for _, p := range r.store {
		out = append(out, *p)
	}
	if newestFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	}
	return out, nil
}

func (r *MemoryRepository) UpdateContent(ctx context.Context, id, content string, updatedAt int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.store[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.Content = content
	p.UpdatedAt = updatedAt
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) SetAttachment(ctx context.Context, id, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.store[id]
	if !ok {
		return models.ErrNotFound
	}
	p.AttachmentKey = key
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.store, id)
	return nil
}
