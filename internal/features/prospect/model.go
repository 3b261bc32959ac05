package prospect

import (
	"strings"
	"time"
)

// Prospect is a discovered candidate the engine may act on. IDs are strings so
// the SQL adapter and mongo share one shape.
type Prospect struct {
	ID               string    `json:"id" bson:"_id"`
	UserID           string    `json:"user_id" bson:"user_id"`
	LinkedInID       string    `json:"linkedin_id,omitempty" bson:"linkedin_id,omitempty"`
	FirstName        string    `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Name             string    `json:"name" bson:"name"`
	Title            string    `json:"title,omitempty" bson:"title,omitempty"`
	Company          string    `json:"company,omitempty" bson:"company,omitempty"`
	Headline         string    `json:"headline,omitempty" bson:"headline,omitempty"`
	Location         string    `json:"location,omitempty" bson:"location,omitempty"`
	ProfileURL       string    `json:"profile_url,omitempty" bson:"profile_url,omitempty"`
	MutualConnection string    `json:"mutual_connection,omitempty" bson:"mutual_connection,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// DisplayName prefers the stored full name and falls back to first + last.
func (p *Prospect) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Cursor is the keyset position (created_at, id) of the last candidate seen.
type Cursor struct {
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ID        string    `json:"id" bson:"id"`
}

// After reports whether p sorts strictly after the cursor.
func (c *Cursor) After(p Prospect) bool {
	if c == nil {
		return true
	}
	if p.CreatedAt.Equal(c.CreatedAt) {
		return p.ID > c.ID
	}
	return p.CreatedAt.After(c.CreatedAt)
}

// PageQuery selects one batch of a user's candidates in discovery order.
type PageQuery struct {
	UserID string
	After  *Cursor
	Limit  int
}
