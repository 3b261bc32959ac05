package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-outreach/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrMalformedRule is returned when a stored rule's trigger windows no longer parse.
var ErrMalformedRule = errors.New("malformed automation rule")

type AutomationRepository interface {
	Create(ctx context.Context, rule *AutomationRule) error
	GetByID(ctx context.Context, id string) (*AutomationRule, error)
	ListByUser(ctx context.Context, userID string) ([]AutomationRule, error)
	ListRunnable(ctx context.Context) ([]AutomationRule, error)
	Update(ctx context.Context, rule *AutomationRule, expected RuleStatus) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool, status RuleStatus) error
	SetStatus(ctx context.Context, id string, status RuleStatus, reason string) error
	TouchLastRun(ctx context.Context, id string, at time.Time) error
}

type AutomationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAutomationRepository(mongodb *database.MongodbDB) AutomationRepository {
	return &AutomationRepositoryImpl{
		Collection: mongodb.DB.Collection("automation_rules"),
	}
}

func (r *AutomationRepositoryImpl) Create(ctx context.Context, rule *AutomationRule) error {
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	_, err := r.Collection.InsertOne(ctx, rule)
	return err
}

func (r *AutomationRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationRule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var rule AutomationRule
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	if err := rule.Prepare(); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformedRule, id, err)
	}
	return &rule, nil
}

func (r *AutomationRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]AutomationRule, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	rules, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		// Listing still shows malformed rules so the owner can fix them
		rules[i].Prepare()
	}
	return rules, nil
}

// ListRunnable returns active rules whose windows parse. Malformed rules are
// skipped since they can never become eligible.
func (r *AutomationRepositoryImpl) ListRunnable(ctx context.Context) ([]AutomationRule, error) {
	filter := bson.M{"is_active": true, "status": StatusActive}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	rules, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	runnable := make([]AutomationRule, 0, len(rules))
	for _, rule := range rules {
		if err := rule.Prepare(); err == nil {
			runnable = append(runnable, rule)
		}
	}
	return runnable, nil
}

func (r *AutomationRepositoryImpl) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]AutomationRule, error) {
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	rules := []AutomationRule{}
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Update writes the rule only while its stored status is still expected, so a
// concurrent engine transition (ERROR, COMPLETED) is never overwritten.
func (r *AutomationRepositoryImpl) Update(ctx context.Context, rule *AutomationRule, expected RuleStatus) error {
	rule.UpdatedAt = time.Now()
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": rule.ID, "status": expected}, bson.M{"$set": rule})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRuleChanged
	}
	return nil
}

func (r *AutomationRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *AutomationRepositoryImpl) SetActive(ctx context.Context, id string, active bool, status RuleStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"is_active":  active,
		"status":     status,
		"last_error": "",
		"updated_at": time.Now(),
	}})
	return err
}

func (r *AutomationRepositoryImpl) SetStatus(ctx context.Context, id string, status RuleStatus, reason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"status":     status,
		"last_error": reason,
		"updated_at": time.Now(),
	}})
	return err
}

func (r *AutomationRepositoryImpl) TouchLastRun(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"last_run_at": at}})
	return err
}
