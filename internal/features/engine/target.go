package engine

import (
	"time"

	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/prospect"
)

// Target is a candidate the Run Coordinator may act on.
type Target struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	FirstName        string    `json:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	Title            string    `json:"title,omitempty"`
	Company          string    `json:"company,omitempty"`
	Headline         string    `json:"headline,omitempty"`
	Location         string    `json:"location,omitempty"`
	ProfileURL       string    `json:"profile_url,omitempty"`
	LinkedInID       string    `json:"linkedin_id,omitempty"`
	MutualConnection string    `json:"mutual_connection,omitempty"`
	CreatedAt        time.Time `json:"-"`
}

func TargetFromProspect(p prospect.Prospect) Target {
	return Target{
		ID:               p.ID,
		Name:             p.DisplayName(),
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Title:            p.Title,
		Company:          p.Company,
		Headline:         p.Headline,
		Location:         p.Location,
		ProfileURL:       p.ProfileURL,
		LinkedInID:       p.LinkedInID,
		MutualConnection: p.MutualConnection,
		CreatedAt:        p.CreatedAt,
	}
}

// Fields exposes the target to message templates.
func (t Target) Fields() automation.TemplateFields {
	return automation.TemplateFields{
		"name":             t.Name,
		"firstName":        t.FirstName,
		"lastName":         t.LastName,
		"title":            t.Title,
		"company":          t.Company,
		"headline":         t.Headline,
		"location":         t.Location,
		"profileUrl":       t.ProfileURL,
		"mutualConnection": t.MutualConnection,
	}
}

func (t Target) scriptValue() map[string]interface{} {
	return map[string]interface{}{
		"id":                t.ID,
		"name":              t.Name,
		"first_name":        t.FirstName,
		"last_name":         t.LastName,
		"title":             t.Title,
		"company":           t.Company,
		"headline":          t.Headline,
		"location":          t.Location,
		"mutual_connection": t.MutualConnection,
	}
}

func (t Target) cursor() prospect.Cursor {
	return prospect.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
}
