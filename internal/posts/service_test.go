package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulsewire/pulse/internal/livequery"
	"github.com/pulsewire/pulse/internal/models"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), livequery.NewHub())
}

func TestCreateTrimsContentAndStampsTimestamps(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", "u1@example.com", "  hello world  ")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Content != "hello world" {
		t.Fatalf("content not trimmed: %q", p.Content)
	}
	if p.CreatedAt != p.UpdatedAt {
		t.Fatalf("createdAt != updatedAt on create: %d vs %d", p.CreatedAt, p.UpdatedAt)
	}
	if p.AuthorID != "u1" || p.AuthorEmail != "u1@example.com" {
		t.Fatalf("author snapshot wrong: %+v", p)
	}
	if p.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestCreateRejectsEmptyContentWithoutWrite(t *testing.T) {
	repo := &countingRepo{Repository: NewMemoryRepository()}
	svc := NewService(repo, livequery.NewHub())
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := svc.Create(ctx, "u1", "u1@example.com", content)
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("content %q: expected ValidationError, got %v", content, err)
		}
	}
	if repo.inserts != 0 {
		t.Fatalf("validation failures must not reach the store, got %d inserts", repo.inserts)
	}
}

func TestUpdatePreservesCreatedAtAndBumpsUpdatedAt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", "u1@example.com", "v1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	p2, err := svc.Update(ctx, p.ID, "  v2  ")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p2.Content != "v2" {
		t.Fatalf("content not trimmed on update: %q", p2.Content)
	}
	if p2.CreatedAt != p.CreatedAt {
		t.Fatalf("createdAt changed on update: %d vs %d", p2.CreatedAt, p.CreatedAt)
	}
	if p2.UpdatedAt < p2.CreatedAt {
		t.Fatalf("updatedAt before createdAt: %d < %d", p2.UpdatedAt, p2.CreatedAt)
	}

	time.Sleep(5 * time.Millisecond)
	p3, err := svc.Update(ctx, p.ID, "v3")
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if p3.UpdatedAt <= p2.UpdatedAt {
		t.Fatalf("updatedAt must strictly increase across updates: %d <= %d", p3.UpdatedAt, p2.UpdatedAt)
	}
}

func TestUpdateRejectsEmptyContent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", "u1@example.com", "keep me")

	_, err := svc.Update(ctx, p.ID, "   ")
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got, _ := svc.Get(ctx, p.ID)
	if got.Content != "keep me" {
		t.Fatalf("content changed after rejected update: %q", got.Content)
	}
}

func TestDeleteMissingPost(t *testing.T) {
	svc := newTestService()
	err := svc.Delete(context.Background(), "nope")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFeedOrderedNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, livequery.NewHub())
	ctx := context.Background()

	// explicit timestamps; Create would stamp near-identical ones
	for i, id := range []string{"p1", "p2", "p3"} {
		repo.Insert(ctx, &models.Post{ID: id, AuthorID: "u1", Content: id, CreatedAt: int64(100 + i), UpdatedAt: int64(100 + i)})
	}
	feed, err := svc.Feed(ctx)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if len(feed) != 3 || feed[0].ID != "p3" || feed[2].ID != "p1" {
		t.Fatalf("feed not newest-first: %+v", feed)
	}
}

func TestWatchFeedObservesCreate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sub := svc.WatchFeed(ctx)
	defer sub.Cancel()
	// initial snapshot is empty
	if got := recvPosts(t, sub); len(got) != 0 {
		t.Fatalf("expected empty initial snapshot, got %v", got)
	}

	p, err := svc.Create(ctx, "u1", "u1@example.com", "hello")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	got := recvPosts(t, sub)
	if len(got) != 1 || got[0].ID != p.ID || got[0].Content != "hello" || got[0].AuthorID != "u1" {
		t.Fatalf("feed subscription missed the create: %+v", got)
	}
}

func TestWatchOneEmptiesWhenDeleted(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "u1", "u1@example.com", "short lived")

	sub := svc.WatchOne(ctx, p.ID)
	defer sub.Cancel()
	if got := recvPosts(t, sub); len(got) != 1 {
		t.Fatalf("expected the post in initial snapshot, got %v", got)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := recvPosts(t, sub); len(got) != 0 {
		t.Fatalf("expected empty snapshot after delete, got %v", got)
	}
}

func recvPosts(t *testing.T, sub *livequery.Subscription[models.Post]) []models.Post {
	t.Helper()
	select {
	case docs, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("snapshot channel closed unexpectedly")
		}
		return docs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

// countingRepo records writes so tests can assert "no store call happened".
type countingRepo struct {
	Repository
	inserts int
}

func (c *countingRepo) Insert(ctx context.Context, p *models.Post) error {
	c.inserts++
	return c.Repository.Insert(ctx, p)
}
