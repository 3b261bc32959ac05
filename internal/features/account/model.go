package account

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountStatus string

const (
	StatusConnected    AccountStatus = "connected"
	StatusDisconnected AccountStatus = "disconnected"
	StatusError        AccountStatus = "error"
)

// LinkedInAccount is the sending identity a rule acts through.
type LinkedInAccount struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     string             `json:"user_id" bson:"user_id"`
	Name       string             `json:"name" bson:"name"`
	Email      string             `json:"email,omitempty" bson:"email,omitempty"`
	ProfileURL string             `json:"profile_url,omitempty" bson:"profile_url,omitempty"`
	Status     AccountStatus      `json:"status" bson:"status"`
	Paused     bool               `json:"paused" bson:"paused"`
	Timezone   string             `json:"timezone,omitempty" bson:"timezone,omitempty"` // IANA name
	RiskLevel  string             `json:"risk_level,omitempty" bson:"risk_level,omitempty"`
	DailyLimit int                `json:"daily_limit,omitempty" bson:"daily_limit,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

// Available reports whether actions may be sent through this account.
func (a *LinkedInAccount) Available() bool {
	return a.Status == StatusConnected && !a.Paused
}

// Location returns the account's zone, or fallback when none is configured
// or the name is unknown.
func (a *LinkedInAccount) Location(fallback *time.Location) *time.Location {
	if a == nil || a.Timezone == "" {
		return fallback
	}
	if loc := loadZone(a.Timezone); loc != nil {
		return loc
	}
	return fallback
}

// zones caches parsed zones by name; unknown names are cached as nil.
var zones sync.Map

func loadZone(name string) *time.Location {
	if cached, ok := zones.Load(name); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = nil
	}
	actual, _ := zones.LoadOrStore(name, loc)
	return actual.(*time.Location)
}
