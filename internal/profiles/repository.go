package profiles

import (
	"context"
	"sync"

	"github.com/pulsewire/pulse/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository defines persistence operations for user profiles
type Repository interface {
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	EnsureDefault(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error)
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// EnsureDefault installs the given profile unless one already exists for the
// id, and returns whichever document ends up stored. $setOnInsert makes the
// operation atomic, so concurrent first logins for one identity converge on
// a single profile.
func (r *MongoRepository) EnsureDefault(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	filter := bson.M{"_id": p.ID}
	update := bson.M{"$setOnInsert": bson.M{
		"email":     p.Email,
		"role":      p.Role,
		"createdAt": p.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored models.UserProfile
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// MemoryRepository is an in-process Repository for unit tests and the dev
// server when MongoDB is not configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.UserProfile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: map[string]*models.UserProfile{}}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.store[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) EnsureDefault(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.store[p.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *p
	r.store[p.ID] = &cp
	out := cp
	return &out, nil
}

// SetRole overwrites a stored profile's role. Promotion to admin happens
// out-of-band; this helper exists for tests and operator tooling.
func (r *MemoryRepository) SetRole(id string, role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.store[id]; ok {
		p.Role = role
	}
}
