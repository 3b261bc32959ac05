package automation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleStatus string

const (
	StatusDraft     RuleStatus = "DRAFT"
	StatusActive    RuleStatus = "ACTIVE"
	StatusPaused    RuleStatus = "PAUSED"
	StatusError     RuleStatus = "ERROR"
	StatusCompleted RuleStatus = "COMPLETED"
)

// Terminal statuses are never selected for execution.
func (s RuleStatus) Terminal() bool {
	return s == StatusError || s == StatusCompleted
}

type ActionType string

const (
	ActionFollow    ActionType = "FOLLOW_PROFILE"
	ActionConnect   ActionType = "SEND_CONNECTION"
	ActionLikePost  ActionType = "LIKE_POST"
	ActionMessage   ActionType = "SEND_MESSAGE"
	ActionAIComment ActionType = "AI_COMMENT"
)

var ActionTypes = []interface{}{ActionFollow, ActionConnect, ActionLikePost, ActionMessage, ActionAIComment}

// RuleType is descriptive metadata used by the dashboard.
type RuleType string

const (
	RuleDirectFollow  RuleType = "DIRECT_FOLLOW"
	RuleDirectConnect RuleType = "DIRECT_CONNECT"
	RuleNetworkExpand RuleType = "NETWORK_EXPAND"
	RulePostEngage    RuleType = "POST_ENGAGE"
	RulePostReply     RuleType = "POST_REPLY"
)

var RuleTypes = []interface{}{RuleDirectFollow, RuleDirectConnect, RuleNetworkExpand, RulePostEngage, RulePostReply}

const (
	DefaultDelayMin    = 30
	DefaultDelayMax    = 120
	DefaultDailyLimit  = 20
	DefaultTriggerTime = "09:00-12:00, 14:00-18:00"
	MinDelaySeconds    = 10
)

type AutomationRule struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user_id"`
	AccountID string             `json:"account_id,omitempty" bson:"account_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Type      RuleType           `json:"type,omitempty" bson:"type,omitempty"`

	// Targeting
	TargetKeywords  StringSet `json:"target_keywords" bson:"target_keywords"`
	TargetCompanies StringSet `json:"target_companies" bson:"target_companies"`
	TargetTitles    StringSet `json:"target_titles" bson:"target_titles"`
	ExcludeKeywords StringSet `json:"exclude_keywords" bson:"exclude_keywords"`
	FilterScript    string    `json:"filter_script,omitempty" bson:"filter_script,omitempty"`

	// Action
	ActionType      ActionType `json:"action_type" bson:"action_type"`
	MessageTemplate string     `json:"message_template,omitempty" bson:"message_template,omitempty"`
	AIPrompt        string     `json:"ai_prompt,omitempty" bson:"ai_prompt,omitempty"`

	// Limits
	DailyLimit int  `json:"daily_limit" bson:"daily_limit"`
	TotalLimit *int `json:"total_limit,omitempty" bson:"total_limit,omitempty"`
	DelayMin   int  `json:"delay_min" bson:"delay_min"` // seconds
	DelayMax   int  `json:"delay_max" bson:"delay_max"` // seconds

	// Trigger
	TriggerTime string   `json:"trigger_time" bson:"trigger_time"`
	DayOfWeek   Weekdays `json:"day_of_week,omitempty" bson:"day_of_week,omitempty"`

	IsActive  bool       `json:"is_active" bson:"is_active"`
	Status    RuleStatus `json:"status" bson:"status"`
	LastError string     `json:"last_error,omitempty" bson:"last_error,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty" bson:"last_run_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`

	windows []TimeWindow
}

// Prepare parses the trigger windows and normalizes the targeting sets.
// Repositories call it on every load so eligibility checks never re-parse.
func (r *AutomationRule) Prepare() error {
	windows, err := ParseTriggerWindows(r.TriggerTime)
	if err != nil {
		return err
	}
	r.windows = windows
	r.TargetKeywords = r.TargetKeywords.Normalize()
	r.TargetCompanies = r.TargetCompanies.Normalize()
	r.TargetTitles = r.TargetTitles.Normalize()
	r.ExcludeKeywords = r.ExcludeKeywords.Normalize()
	return nil
}

// Windows returns the parsed trigger windows. Empty until Prepare succeeds.
func (r *AutomationRule) Windows() []TimeWindow {
	return r.windows
}

// Runnable reports whether the lifecycle flags allow a pass at all.
func (r *AutomationRule) Runnable() bool {
	return r.IsActive && r.Status == StatusActive
}

// AllowsDay reports whether the day-of-week restriction admits d.
func (r *AutomationRule) AllowsDay(d time.Weekday) bool {
	return r.DayOfWeek.Allows(d)
}

// ApplyDefaults fills the values a new rule starts with.
func (r *AutomationRule) ApplyDefaults() {
	if r.DelayMin == 0 {
		r.DelayMin = DefaultDelayMin
	}
	if r.DelayMax == 0 {
		r.DelayMax = DefaultDelayMax
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = DefaultDailyLimit
	}
	if r.TriggerTime == "" {
		r.TriggerTime = DefaultTriggerTime
	}
	if r.Status == "" {
		r.Status = StatusDraft
	}
}
