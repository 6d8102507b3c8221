package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Credential is a stored email/password credential. The document id is the
// subject id carried in access tokens and stamped on authored content.
type Credential struct {
	ID           string `bson:"_id" json:"id"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"passwordHash" json:"-"`
	CreatedAt    int64  `bson:"createdAt" json:"createdAt"`
}

// Repository defines persistence operations for credentials
type Repository interface {
	Insert(ctx context.Context, c *Credential) error
	GetByEmail(ctx context.Context, email string) (*Credential, error)
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	// unique email index backs the "email already in use" check
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, c *Credential) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// MemoryRepository is an in-process Repository used by unit tests and by the
// dev server when MongoDB is not configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*Credential
	email map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]*Credential{}, email: map[string]string{}}
}

func (r *MemoryRepository) Insert(ctx context.Context, c *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(c.Email)
	if _, ok := r.email[key]; ok {
		return ErrDuplicateEmail
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	cp := *c
	r.byID[c.ID] = &cp
	r.email[key] = c.ID
	return nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.email[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}
