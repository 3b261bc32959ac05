package cron_feature

import (
	"context"
	"time"

	"go-outreach/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SweepRepository interface {
	CreateLog(ctx context.Context, log *SweepLog) error
	UpdateLog(ctx context.Context, log *SweepLog) error
	GetLogs(ctx context.Context, limit int) ([]SweepLog, error)
}

type SweepRepositoryImpl struct {
	logCollection *mongo.Collection
}

func NewSweepRepository(db *database.MongodbDB) SweepRepository {
	return &SweepRepositoryImpl{
		logCollection: db.DB.Collection("cron_sweep_logs"),
	}
}

func (r *SweepRepositoryImpl) CreateLog(ctx context.Context, log *SweepLog) error {
	log.ID = primitive.NewObjectID()
	log.CreatedAt = time.Now()

	_, err := r.logCollection.InsertOne(ctx, log)
	return err
}

func (r *SweepRepositoryImpl) UpdateLog(ctx context.Context, log *SweepLog) error {
	_, err := r.logCollection.ReplaceOne(ctx, bson.M{"_id": log.ID}, log)
	return err
}

func (r *SweepRepositoryImpl) GetLogs(ctx context.Context, limit int) ([]SweepLog, error) {
	var logs []SweepLog

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.logCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
