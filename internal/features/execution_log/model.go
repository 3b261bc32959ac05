package execution_log

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeSkipped Outcome = "SKIPPED"
)

// ExecutionLog is one attempted action. Entries are never updated.
type ExecutionLog struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RuleID      string             `json:"rule_id" bson:"rule_id"`
	RuleName    string             `json:"rule_name" bson:"rule_name"`
	UserID      string             `json:"user_id,omitempty" bson:"user_id,omitempty"`
	AccountID   string             `json:"account_id,omitempty" bson:"account_id,omitempty"`
	AccountName string             `json:"account_name,omitempty" bson:"account_name,omitempty"`
	PassID      string             `json:"pass_id" bson:"pass_id"`
	ActionType  string             `json:"action_type" bson:"action_type"`
	TargetID    string             `json:"target_id" bson:"target_id"`
	TargetName  string             `json:"target_name" bson:"target_name"`
	TargetURL   string             `json:"target_url,omitempty" bson:"target_url,omitempty"`
	Outcome     Outcome            `json:"outcome" bson:"outcome"`
	Detail      string             `json:"detail,omitempty" bson:"detail,omitempty"`
	ExternalRef string             `json:"external_ref,omitempty" bson:"external_ref,omitempty"`
	Timestamp   time.Time          `json:"timestamp" bson:"timestamp"`
}

// ListFilter selects a page of the log, newest first.
type ListFilter struct {
	RuleID     string
	AccountID  string
	UserID     string
	ActionType string
	Outcome    string
	Page       int64
	Limit      int64
}

// Normalize clamps paging to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}
