package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionAutomation AuditAction = "AUTOMATION"
	AuditActionStatus     AuditAction = "STATUS"
	AuditActionRun        AuditAction = "RUN"
	AuditActionCron       AuditAction = "CRON"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`                       // rule, run_marker, cron
	RecordID  string             `bson:"record_id" json:"record_id"`                 // The ID of the record being modified
	ActorID   string             `bson:"actor_id" json:"actor_id"`                   // User ID, or "system" for engine transitions
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"` // field -> {old, new}
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Log is a persisted application log line written by the zap DB core.
type Log struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppId        string             `bson:"app_id" json:"app_id"`
	Message      string             `bson:"message" json:"message"`
	LogLevelId   int                `bson:"log_level_id" json:"log_level_id"`
	Caller       string             `bson:"caller,omitempty" json:"caller,omitempty"`
	RuleId       string             `bson:"rule_id,omitempty" json:"rule_id,omitempty"`
	AccountId    string             `bson:"account_id,omitempty" json:"account_id,omitempty"`
	Error        string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedOnUtc time.Time          `bson:"created_on_utc" json:"created_on_utc"`
}
