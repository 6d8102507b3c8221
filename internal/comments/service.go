package comments

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

// Service is the mutation and query API for comments. There is no update
// operation; comments are created and deleted only. As with posts, ownership
// gating is the handler layer's job.
type Service struct {
	repo Repository
	hub  *livequery.Hub
}

func NewService(r Repository, hub *livequery.Hub) *Service {
	return &Service{repo: r, hub: hub}
}

// Create inserts a comment against postID. The post's existence is not
// verified; a comment against a vanished post is simply an orphan.
func (s *Service) Create(ctx context.Context, postID, authorID, authorEmail, content string) (*models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		metrics.MutationsRejected.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Field: "content", Reason: "cannot be empty"}
	}
	if postID == "" {
		metrics.MutationsRejected.WithLabelValues("validation").Inc()
		return nil, &models.ValidationError{Field: "postId", Reason: "is required"}
	}
	c := &models.Comment{
		ID:          uuid.NewString(),
		PostID:      postID,
		AuthorID:    authorID,
		AuthorEmail: authorEmail,
		Content:     trimmed,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if err := s.repo.Insert(ctx, c); err != nil {
		return nil, &models.StoreError{Op: "create comment", Err: err}
	}
	metrics.MutationsTotal.WithLabelValues(models.CollectionComments, "create").Inc()
	s.hub.Invalidate(models.CollectionComments)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return &models.StoreError{Op: "delete comment", Err: err}
	}
	metrics.MutationsTotal.WithLabelValues(models.CollectionComments, "delete").Inc()
	s.hub.Invalidate(models.CollectionComments)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Comment, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, &models.StoreError{Op: "get comment", Err: err}
	}
	return c, nil
}

// ForPost lists a post's comments newest first.
func (s *Service) ForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	out, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, &models.StoreError{Op: "list comments", Err: err}
	}
	return out, nil
}

// All lists every comment, unordered (moderation view).
func (s *Service) All(ctx context.Context) ([]models.Comment, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, &models.StoreError{Op: "list comments", Err: err}
	}
	return out, nil
}

// WatchForPost subscribes to one post's comments, newest first.
func (s *Service) WatchForPost(ctx context.Context, postID string) *livequery.Subscription[models.Comment] {
	return livequery.Subscribe(ctx, s.hub, models.CollectionComments, func(ctx context.Context) ([]models.Comment, error) {
		return s.repo.ListByPost(ctx, postID)
	})
}

// WatchAll subscribes to the unordered comment set (moderation view).
func (s *Service) WatchAll(ctx context.Context) *livequery.Subscription[models.Comment] {
	return livequery.Subscribe(ctx, s.hub, models.CollectionComments, func(ctx context.Context) ([]models.Comment, error) {
		return s.repo.List(ctx)
	})
}
