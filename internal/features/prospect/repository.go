package prospect

import (
	"context"
	"time"

	"go-outreach/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProspectRepository is the candidate store. Page must return candidates
// ordered by (created_at, id) ascending so passes resume deterministically.
type ProspectRepository interface {
	Create(ctx context.Context, p *Prospect) error
	Page(ctx context.Context, q PageQuery) ([]Prospect, error)
}

type ProspectRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewProspectRepository(mongodb *database.MongodbDB) *ProspectRepositoryImpl {
	return &ProspectRepositoryImpl{
		Collection: mongodb.DB.Collection("prospects"),
	}
}

func (r *ProspectRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

func (r *ProspectRepositoryImpl) Create(ctx context.Context, p *Prospect) error {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.Collection.InsertOne(ctx, p)
	return err
}

func (r *ProspectRepositoryImpl) Page(ctx context.Context, q PageQuery) ([]Prospect, error) {
	filter := bson.M{"user_id": q.UserID}
	if q.After != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$gt": q.After.CreatedAt}},
			bson.M{"created_at": q.After.CreatedAt, "_id": bson.M{"$gt": q.After.ID}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(q.Limit))

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	prospects := []Prospect{}
	if err = cursor.All(ctx, &prospects); err != nil {
		return nil, err
	}
	return prospects, nil
}
