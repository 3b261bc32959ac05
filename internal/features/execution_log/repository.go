package execution_log

import (
	"context"
	"errors"
	"time"

	"go-outreach/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateSuccess means a SUCCESS for the same (rule, target) already exists.
var ErrDuplicateSuccess = errors.New("target already succeeded under this rule")

type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *ExecutionLog) error
	CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error)
	CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error)
	ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error)
	List(ctx context.Context, filter ListFilter) ([]ExecutionLog, int64, error)
	Iterate(ctx context.Context, filter ListFilter, fn func(ExecutionLog) error) error
	EnsureIndexes(ctx context.Context) error
}

type ExecutionLogRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExecutionLogRepository(mongodb *database.MongodbDB) ExecutionLogRepository {
	return &ExecutionLogRepositoryImpl{
		Collection: mongodb.DB.Collection("execution_logs"),
	}
}

func (r *ExecutionLogRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "rule_id", Value: 1}, {Key: "target_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_rule_target_success").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"outcome": OutcomeSuccess}),
		},
		{Keys: bson.D{{Key: "rule_id", Value: 1}, {Key: "outcome", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	})
	return err
}

func (r *ExecutionLogRepositoryImpl) Append(ctx context.Context, entry *ExecutionLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := r.Collection.InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSuccess
	}
	return err
}

// CountSuccess counts SUCCESS entries for a rule, optionally within [from, to).
func (r *ExecutionLogRepositoryImpl) CountSuccess(ctx context.Context, ruleID string, from, to *time.Time) (int, error) {
	return r.countSuccess(ctx, bson.M{"rule_id": ruleID, "outcome": OutcomeSuccess}, from, to)
}

// CountAccountSuccess counts SUCCESS entries sent through an account across all rules.
func (r *ExecutionLogRepositoryImpl) CountAccountSuccess(ctx context.Context, accountID string, from, to *time.Time) (int, error) {
	return r.countSuccess(ctx, bson.M{"account_id": accountID, "outcome": OutcomeSuccess}, from, to)
}

func (r *ExecutionLogRepositoryImpl) countSuccess(ctx context.Context, filter bson.M, from, to *time.Time) (int, error) {
	window := bson.M{}
	if from != nil {
		window["$gte"] = *from
	}
	if to != nil {
		window["$lt"] = *to
	}
	if len(window) > 0 {
		filter["timestamp"] = window
	}
	n, err := r.Collection.CountDocuments(ctx, filter)
	return int(n), err
}

// ActedTargets returns which of targetIDs already have a SUCCESS or SKIPPED
// entry under the rule.
func (r *ExecutionLogRepositoryImpl) ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error) {
	acted := make(map[string]bool)
	if len(targetIDs) == 0 {
		return acted, nil
	}
	ids, err := r.Collection.Distinct(ctx, "target_id", bson.M{
		"rule_id":   ruleID,
		"target_id": bson.M{"$in": targetIDs},
		"outcome":   bson.M{"$in": bson.A{OutcomeSuccess, OutcomeSkipped}},
	})
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if s, ok := id.(string); ok {
			acted[s] = true
		}
	}
	return acted, nil
}

func buildQuery(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.RuleID != "" {
		query["rule_id"] = filter.RuleID
	}
	if filter.AccountID != "" {
		query["account_id"] = filter.AccountID
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.ActionType != "" {
		query["action_type"] = filter.ActionType
	}
	if filter.Outcome != "" {
		query["outcome"] = filter.Outcome
	}
	return query
}

func (r *ExecutionLogRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]ExecutionLog, int64, error) {
	filter.Normalize()
	query := buildQuery(filter)

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((filter.Page - 1) * filter.Limit).
		SetLimit(filter.Limit)

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	logs := []ExecutionLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Iterate streams every matching entry newest first, ignoring paging.
func (r *ExecutionLogRepositoryImpl) Iterate(ctx context.Context, filter ListFilter, fn func(ExecutionLog) error) error {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.Collection.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var entry ExecutionLog
		if err := cursor.Decode(&entry); err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return cursor.Err()
}
