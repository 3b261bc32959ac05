package engine

import (
	"context"
	"time"

	"go-outreach/internal/database"
	"go-outreach/internal/features/prospect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RunMarker is the durable record of an in-flight pass. Its _id is the rule
// id, so the store admits at most one per rule.
type RunMarker struct {
	RuleID        string           `json:"rule_id" bson:"_id"`
	Token         string           `json:"-" bson:"token"`
	PassID        string           `json:"pass_id" bson:"pass_id"`
	StartedAt     time.Time        `json:"started_at" bson:"started_at"`
	HeartbeatAt   time.Time        `json:"heartbeat_at" bson:"heartbeat_at"`
	Cursor        *prospect.Cursor `json:"cursor,omitempty" bson:"cursor,omitempty"`
	Actions       int              `json:"actions" bson:"actions"`
	StopRequested bool             `json:"stop_requested" bson:"stop_requested"`
}

// MarkerStore owns run markers. Every mutation other than Acquire,
// RequestStop and ForceRelease is fenced by the owner's token.
type MarkerStore interface {
	Acquire(ctx context.Context, marker *RunMarker) error
	Advance(ctx context.Context, ruleID, token string, cursor prospect.Cursor, actions int, at time.Time) error
	StopRequested(ctx context.Context, ruleID, token string) (bool, error)
	RequestStop(ctx context.Context, ruleID string) error
	Release(ctx context.Context, ruleID, token string) error
	Get(ctx context.Context, ruleID string) (*RunMarker, error)
	ForceRelease(ctx context.Context, ruleID string) (*RunMarker, error)
}

type MongoMarkerStore struct {
	Collection *mongo.Collection
}

func NewMongoMarkerStore(mongodb *database.MongodbDB) *MongoMarkerStore {
	return &MongoMarkerStore{
		Collection: mongodb.DB.Collection("rule_run_markers"),
	}
}

// Acquire inserts the marker. The unique _id makes concurrent acquires race
// on the server; losers get ErrRuleAlreadyRunning.
func (s *MongoMarkerStore) Acquire(ctx context.Context, marker *RunMarker) error {
	_, err := s.Collection.InsertOne(ctx, marker)
	if mongo.IsDuplicateKeyError(err) {
		return ErrRuleAlreadyRunning
	}
	return err
}

func (s *MongoMarkerStore) Advance(ctx context.Context, ruleID, token string, cursor prospect.Cursor, actions int, at time.Time) error {
	_, err := s.Collection.UpdateOne(ctx,
		bson.M{"_id": ruleID, "token": token},
		bson.M{"$set": bson.M{"cursor": cursor, "actions": actions, "heartbeat_at": at}},
	)
	return err
}

// StopRequested also reports true when the marker was force-released under
// the running pass.
func (s *MongoMarkerStore) StopRequested(ctx context.Context, ruleID, token string) (bool, error) {
	var marker RunMarker
	err := s.Collection.FindOne(ctx, bson.M{"_id": ruleID, "token": token},
		options.FindOne().SetProjection(bson.M{"stop_requested": 1})).Decode(&marker)
	if err == mongo.ErrNoDocuments {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return marker.StopRequested, nil
}

func (s *MongoMarkerStore) RequestStop(ctx context.Context, ruleID string) error {
	res, err := s.Collection.UpdateOne(ctx, bson.M{"_id": ruleID}, bson.M{"$set": bson.M{"stop_requested": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoRunInProgress
	}
	return nil
}

func (s *MongoMarkerStore) Release(ctx context.Context, ruleID, token string) error {
	_, err := s.Collection.DeleteOne(ctx, bson.M{"_id": ruleID, "token": token})
	return err
}

func (s *MongoMarkerStore) Get(ctx context.Context, ruleID string) (*RunMarker, error) {
	var marker RunMarker
	err := s.Collection.FindOne(ctx, bson.M{"_id": ruleID}).Decode(&marker)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &marker, nil
}

// ForceRelease removes a marker regardless of owner, for passes whose
// process died without releasing.
func (s *MongoMarkerStore) ForceRelease(ctx context.Context, ruleID string) (*RunMarker, error) {
	var marker RunMarker
	err := s.Collection.FindOneAndDelete(ctx, bson.M{"_id": ruleID}).Decode(&marker)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNoRunInProgress
	}
	if err != nil {
		return nil, err
	}
	return &marker, nil
}
