package cron_feature

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SweepStatus string

const (
	SweepRunning SweepStatus = "running"
	SweepSuccess SweepStatus = "success"
	SweepFailed  SweepStatus = "failed"
)

type SweepTrigger string

const (
	TriggerSchedule SweepTrigger = "schedule"
	TriggerManual   SweepTrigger = "manual"
)

// maxSweepErrors caps the per-rule errors kept on a sweep log.
const maxSweepErrors = 20

// SweepLog records one run of the periodic driver over all active rules.
type SweepLog struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Trigger         SweepTrigger       `json:"trigger" bson:"trigger"`
	StartTime       time.Time          `json:"start_time" bson:"start_time"`
	EndTime         *time.Time         `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Status          SweepStatus        `json:"status" bson:"status"`
	RulesProcessed  int                `json:"rules_processed" bson:"rules_processed"`
	RulesEligible   int                `json:"rules_eligible" bson:"rules_eligible"`
	ActionsExecuted int                `json:"actions_executed" bson:"actions_executed"`
	Conflicts       int                `json:"conflicts" bson:"conflicts"`
	Failures        int                `json:"failures" bson:"failures"`
	Errors          []string           `json:"errors,omitempty" bson:"errors,omitempty"`
	Error           string             `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
}
