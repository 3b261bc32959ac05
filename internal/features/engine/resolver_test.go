package engine

import (
	"context"
	"testing"

	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/execution_log"
	"go-outreach/internal/features/prospect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMatches(t *testing.T) {
	target := Target{Title: "VP Engineering", Company: "Acme Robotics", Headline: "Building robots at scale"}

	tests := []struct {
		name string
		rule automation.AutomationRule
		want bool
	}{
		{"no filters", automation.AutomationRule{}, true},
		{"keyword in title", automation.AutomationRule{TargetKeywords: automation.StringSet{"engineering"}}, true},
		{"keyword in headline", automation.AutomationRule{TargetKeywords: automation.StringSet{"ROBOTS"}}, true},
		{"keyword missing", automation.AutomationRule{TargetKeywords: automation.StringSet{"marketing"}}, false},
		{"any keyword", automation.AutomationRule{TargetKeywords: automation.StringSet{"marketing", "scale"}}, true},
		{"company substring", automation.AutomationRule{TargetCompanies: automation.StringSet{"acme"}}, true},
		{"company mismatch", automation.AutomationRule{TargetCompanies: automation.StringSet{"Globex"}}, false},
		{"title match", automation.AutomationRule{TargetTitles: automation.StringSet{"vp"}}, true},
		{"title mismatch", automation.AutomationRule{TargetTitles: automation.StringSet{"cto"}}, false},
		{"excluded", automation.AutomationRule{ExcludeKeywords: automation.StringSet{"robotics"}}, false},
		{"included then excluded", automation.AutomationRule{
			TargetKeywords:  automation.StringSet{"engineering"},
			ExcludeKeywords: automation.StringSet{"scale"},
		}, false},
		{"all sets agree", automation.AutomationRule{
			TargetKeywords:  automation.StringSet{"robots"},
			TargetCompanies: automation.StringSet{"Acme"},
			TargetTitles:    automation.StringSet{"Engineering"},
			ExcludeKeywords: automation.StringSet{"intern"},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(&tt.rule, target))
		})
	}
}

func drain(t *testing.T, seq *TargetSequence) []string {
	t.Helper()
	var ids []string
	for {
		target, ok, err := seq.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return ids
		}
		ids = append(ids, target.ID)
	}
}

func TestResolver_OrderAndPagingPastFilteredBatches(t *testing.T) {
	h := newHarness(t)
	ruleID := h.addRule(t, func(r *automation.AutomationRule) { r.TargetTitles = automation.StringSet{"founder"} })
	h.addProspects(5, func(i int, p *prospect.Prospect) {
		if i < 4 {
			p.Title = "Recruiter"
		}
	})
	rule, err := h.rules.GetByID(context.Background(), ruleID)
	require.NoError(t, err)

	resolver := NewTargetResolver(h.candidates, h.logs, h.cfg, zap.NewNop())
	seq, err := resolver.Resolve(rule)
	require.NoError(t, err)

	assert.Equal(t, 0, h.candidates.Calls(), "resolution is lazy")
	assert.Equal(t, []string{"p05"}, drain(t, seq))
	assert.Equal(t, 3, seq.Pages())
}

func TestResolver_ResumePastActedPages(t *testing.T) {
	h := newHarness(t)
	ruleID := h.addRule(t, nil)
	h.addProspects(5, nil)
	for _, id := range []string{"p01", "p02", "p03", "p04"} {
		h.logs.entries = append(h.logs.entries, execution_log.ExecutionLog{RuleID: ruleID, TargetID: id, Outcome: execution_log.OutcomeSuccess})
	}
	rule, err := h.rules.GetByID(context.Background(), ruleID)
	require.NoError(t, err)

	resolver := NewTargetResolver(h.candidates, h.logs, h.cfg, zap.NewNop())
	seq, err := resolver.Resolve(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"p05"}, drain(t, seq))
	assert.Equal(t, 3, seq.Pages())
}

func TestResolver_StableOrderAndActedExclusion(t *testing.T) {
	h := newHarness(t)
	ruleID := h.addRule(t, nil)
	h.addProspects(4, nil)
	// same creation time: id breaks the tie
	h.candidates.prospects[3].CreatedAt = h.candidates.prospects[0].CreatedAt
	h.logs.entries = []execution_log.ExecutionLog{
		{RuleID: ruleID, TargetID: "p02", Outcome: execution_log.OutcomeSuccess},
		{RuleID: ruleID, TargetID: "p03", Outcome: execution_log.OutcomeFailed},
		{RuleID: "other", TargetID: "p01", Outcome: execution_log.OutcomeSuccess},
	}
	rule, err := h.rules.GetByID(context.Background(), ruleID)
	require.NoError(t, err)

	resolver := NewTargetResolver(h.candidates, h.logs, h.cfg, zap.NewNop())
	seq, err := resolver.Resolve(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"p01", "p04", "p03"}, drain(t, seq))
}

func TestResolver_FilterScript(t *testing.T) {
	h := newHarness(t)
	ruleID := h.addRule(t, func(r *automation.AutomationRule) {
		r.FilterScript = `match := target.company == "Globex" || target.first_name == "Sam"`
	})
	h.addProspects(3, func(i int, p *prospect.Prospect) {
		switch i {
		case 1:
			p.Company = "Globex"
		case 2:
			p.FirstName = "Sam"
		}
	})
	rule, err := h.rules.GetByID(context.Background(), ruleID)
	require.NoError(t, err)

	resolver := NewTargetResolver(h.candidates, h.logs, h.cfg, zap.NewNop())
	seq, err := resolver.Resolve(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"p02", "p03"}, drain(t, seq))
}

func TestResolver_OnlyOwnersCandidates(t *testing.T) {
	h := newHarness(t)
	ruleID := h.addRule(t, nil)
	h.addProspects(3, func(i int, p *prospect.Prospect) {
		if i == 1 {
			p.UserID = "someone-else"
		}
	})
	rule, err := h.rules.GetByID(context.Background(), ruleID)
	require.NoError(t, err)

	seq, err := NewTargetResolver(h.candidates, h.logs, h.cfg, zap.NewNop()).Resolve(rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"p01", "p03"}, drain(t, seq))
}

func TestCheckFilterScript(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr bool
	}{
		{"valid", `match := target.title != ""`, false},
		{"uses text module", `text := import("text"); match := text.contains(text.to_lower(target.title), "founder")`, false},
		{"syntax error", `match := (`, true},
		{"never assigns match", `x := 1`, true},
		{"unknown module", `os := import("os"); match := true`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFilterScript(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
