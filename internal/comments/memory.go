package comments

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
	store map[string]*models.Comment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]*models.Comment{}}
}

func (r *MemoryRepository) Insert(ctx context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.store[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.store[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Comment{}
	for _, c := range r.store {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Comment, 0, len(r.store))
	for _, c := range r.store {
		out = append(out, *c)
	}
	return out, nil
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
