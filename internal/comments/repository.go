package comments

import (
	"context"

	"github.com/pulsewire/pulse/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository defines persistence operations for comments
type Repository interface {
	Insert(ctx context.Context, c *models.Comment) error
	Get(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	List(ctx context.Context) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	// postId is the only filtered field; index keeps the detail view cheap
	idx := mongo.IndexModel{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: -1}}}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, c *models.Comment) error {
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByPost returns the comments for one post, newest first. Orphaned
// comments (whose post was deleted) are still returned; the reference is
// not enforced.
func (r *MongoRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]models.Comment, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
