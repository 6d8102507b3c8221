package posts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pulsewire/pulse/internal/livequery"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/pulsewire/pulse/pkg/metrics"
)

// Service is the mutation and query API for posts. Mutations validate input
// before touching the store and never check ownership; the handler layer
// gates mutations on CanMutate before calling in. Store failures surface as
// StoreError and are never retried here.
type Service struct {
	repo Repository
	hub  *livequery.Hub
}

func NewService(r Repository, hub *livequery.Hub) *Service {
	return &Service{repo: r, hub: hub}
}

// Create inserts a new post with trimmed content and equal create/update
// timestamps. The author's email is captured as a point-in-time snapshot.
func (s *Service) Create(ctx context.Context, authorID, authorEmail, content string) (*models.Post, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		metrics.MutationsRejected.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Field: "content", Reason: "cannot be empty"}
	}
	now := time.Now().UnixMilli()
	p := &models.Post{
		ID:          uuid.NewString(),
		AuthorID:    authorID,
		AuthorEmail: authorEmail,
		Content:     trimmed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, &models.StoreError{Op: "create post", Err: err}
	}
	metrics.MutationsTotal.WithLabelValues(models.CollectionPosts, "create").Inc()
	s.hub.Invalidate(models.CollectionPosts)
	return p, nil
}

// Update replaces the content and bumps updatedAt; createdAt is untouched.
func (s *Service) Update(ctx context.Context, id, content string) (*models.Post, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		metrics.MutationsRejected.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Field: "content", Reason: "cannot be empty"}
	}
	p, err := s.repo.UpdateContent(ctx, id, trimmed, time.Now().UnixMilli())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, &models.StoreError{Op: "update post", Err: err}
	}
	metrics.MutationsTotal.WithLabelValues(models.CollectionPosts, "update").Inc()
	s.hub.Invalidate(models.CollectionPosts)
	return p, nil
}

// Delete removes the post by id. Comments referencing it are left in place;
// readers of the comments collection see them as orphans.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return &models.StoreError{Op: "delete post", Err: err}
	}
	metrics.MutationsTotal.WithLabelValues(models.CollectionPosts, "delete").Inc()
	s.hub.Invalidate(models.CollectionPosts)
	return nil
}

// SetAttachment records the object-storage key of an uploaded attachment.
func (s *Service) SetAttachment(ctx context.Context, id, key string) error {
	if err := s.repo.SetAttachment(ctx, id, key); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return &models.StoreError{Op: "attach to post", Err: err}
	}
	metrics.MutationsTotal.WithLabelValues(models.CollectionPosts, "attach").Inc()
	s.hub.Invalidate(models.CollectionPosts)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, &models.StoreError{Op: "get post", Err: err}
	}
	return p, nil
}

// Feed lists all posts newest first.
func (s *Service) Feed(ctx context.Context) ([]models.Post, error) {
	out, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, &models.StoreError{Op: "list posts", Err: err}
	}
	return out, nil
}

// All lists posts without ordering, as the moderation view consumes them.
func (s *Service) All(ctx context.Context) ([]models.Post, error) {
	out, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, &models.StoreError{Op: "list posts", Err: err}
	}
	return out, nil
}

// WatchFeed subscribes to the newest-first feed.
func (s *Service) WatchFeed(ctx context.Context) *livequery.Subscription[models.Post] {
	return livequery.Subscribe(ctx, s.hub, models.CollectionPosts, func(ctx context.Context) ([]models.Post, error) {
		return s.repo.List(ctx, true)
	})
}

// WatchAll subscribes to the unordered post set (moderation view).
func (s *Service) WatchAll(ctx context.Context) *livequery.Subscription[models.Post] {
	return livequery.Subscribe(ctx, s.hub, models.CollectionPosts, func(ctx context.Context) ([]models.Post, error) {
		return s.repo.List(ctx, false)
	})
}

// WatchOne subscribes to a single post by id. The snapshot is empty once the
// post no longer exists; consumers treat that as a deleted signal, not an
// error.
func (s *Service) WatchOne(ctx context.Context, id string) *livequery.Subscription[models.Post] {
	return livequery.Subscribe(ctx, s.hub, models.CollectionPosts, func(ctx context.Context) ([]models.Post, error) {
		p, err := s.repo.Get(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return []models.Post{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []models.Post{*p}, nil
	})
}
