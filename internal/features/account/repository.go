package account

import (
	"context"
	"time"

	"go-outreach/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AccountRepository interface {
	Create(ctx context.Context, account *LinkedInAccount) error
	GetByID(ctx context.Context, id string) (*LinkedInAccount, error)
	ListByUser(ctx context.Context, userID string) ([]LinkedInAccount, error)
	SetPaused(ctx context.Context, id string, paused bool) error
}

type AccountRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAccountRepository(mongodb *database.MongodbDB) AccountRepository {
	return &AccountRepositoryImpl{
		Collection: mongodb.DB.Collection("linkedin_accounts"),
	}
}

func (r *AccountRepositoryImpl) Create(ctx context.Context, account *LinkedInAccount) error {
	account.ID = primitive.NewObjectID()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	if account.Status == "" {
		account.Status = StatusConnected
	}
	_, err := r.Collection.InsertOne(ctx, account)
	return err
}

func (r *AccountRepositoryImpl) GetByID(ctx context.Context, id string) (*LinkedInAccount, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var account LinkedInAccount
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&account)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]LinkedInAccount, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.Collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	accounts := []LinkedInAccount{}
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepositoryImpl) SetPaused(ctx context.Context, id string, paused bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"paused": paused, "updated_at": time.Now()}})
	return err
}
