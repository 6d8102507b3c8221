package posts

import (
	"context"

	"github.com/pulsewire/pulse/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository defines persistence operations for posts
type Repository interface {
	Insert(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, newestFirst bool) ([]models.Post, error)
	UpdateContent(ctx context.Context, id, content string, updatedAt int64) (*models.Post, error)
	SetAttachment(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, p *models.Post) error {
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) List(ctx context.Context, newestFirst bool) ([]models.Post, error) {
	opts := options.Find()
	if newestFirst {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	}
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Post{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) UpdateContent(ctx context.Context, id, content string, updatedAt int64) (*models.Post, error) {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"content": content, "updatedAt": updatedAt}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) SetAttachment(ctx context.Context, id, key string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"attachmentKey": key}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
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
