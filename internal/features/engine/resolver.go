package engine

import (
	"context"
	"fmt"
	"strings"

	"go-outreach/internal/config"
	"go-outreach/internal/features/automation"
	"go-outreach/internal/features/prospect"

	"go.uber.org/zap"
)

// CandidateStore pages a user's prospects in (created_at, id) order.
type CandidateStore interface {
	Page(ctx context.Context, q prospect.PageQuery) ([]prospect.Prospect, error)
}

// ActedLookup reports which targets already have a terminal entry under a rule.
type ActedLookup interface {
	ActedTargets(ctx context.Context, ruleID string, targetIDs []string) (map[string]bool, error)
}

type TargetResolver struct {
	candidates CandidateStore
	acted      ActedLookup
	pageSize   int
	logger     *zap.Logger
}

func NewTargetResolver(candidates CandidateStore, acted ActedLookup, cfg *config.Config, logger *zap.Logger) *TargetResolver {
	pageSize := cfg.ResolverPageSize
	if pageSize < 1 {
		pageSize = 50
	}
	return &TargetResolver{
		candidates: candidates,
		acted:      acted,
		pageSize:   pageSize,
		logger:     logger.Named("resolver"),
	}
}

// Resolve returns a lazy sequence over the rule's unseen matching targets,
// oldest discovered first. Nothing is fetched until Next is called.
func (r *TargetResolver) Resolve(rule *automation.AutomationRule) (*TargetSequence, error) {
	seq := &TargetSequence{resolver: r, rule: rule}
	if rule.FilterScript != "" {
		script, err := CompileFilterScript(rule.FilterScript)
		if err != nil {
			return nil, err
		}
		seq.script = script
	}
	return seq, nil
}

type TargetSequence struct {
	resolver  *TargetResolver
	rule      *automation.AutomationRule
	script    *FilterScript
	buffer    []Target
	after     *prospect.Cursor
	exhausted bool
	pages     int
}

// Next yields the next target. ok is false once the candidate store is exhausted.
func (s *TargetSequence) Next(ctx context.Context) (Target, bool, error) {
	for len(s.buffer) == 0 {
		// A resumed pass sees whole pages of already-acted targets first;
		// an empty buffer means fetch again, not stop.
		if s.exhausted {
			return Target{}, false, nil
		}
		if err := s.fill(ctx); err != nil {
			return Target{}, false, fmt.Errorf("%w: %v", ErrTargetResolution, err)
		}
	}
	t := s.buffer[0]
	s.buffer = s.buffer[1:]
	return t, true, nil
}

// Pages reports how many candidate batches have been fetched.
func (s *TargetSequence) Pages() int {
	return s.pages
}

// fill fetches one raw batch. A batch where every candidate is filtered out
// leaves the buffer empty and Next fetches again; only an empty or short batch
// ends iteration.
func (s *TargetSequence) fill(ctx context.Context) error {
	r := s.resolver
	page, err := r.candidates.Page(ctx, prospect.PageQuery{
		UserID: s.rule.UserID,
		After:  s.after,
		Limit:  r.pageSize,
	})
	if err != nil {
		return err
	}
	s.pages++
	if len(page) < r.pageSize {
		s.exhausted = true
	}
	if len(page) == 0 {
		return nil
	}

	last := page[len(page)-1]
	s.after = &prospect.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}

	ids := make([]string, len(page))
	for i, p := range page {
		ids[i] = p.ID
	}
	acted, err := r.acted.ActedTargets(ctx, s.rule.ID.Hex(), ids)
	if err != nil {
		return err
	}

	for _, p := range page {
		if acted[p.ID] {
			continue
		}
		t := TargetFromProspect(p)
		if !Matches(s.rule, t) {
			continue
		}
		if s.script != nil {
			ok, err := s.script.Match(ctx, t)
			if err != nil {
				r.logger.Warn("filter script failed",
					zap.String("rule_id", s.rule.ID.Hex()),
					zap.String("target_id", t.ID),
					zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
		}
		s.buffer = append(s.buffer, t)
	}
	return nil
}

// Matches applies the rule's inclusion and exclusion sets. Matching is a
// case-insensitive substring test.
func Matches(rule *automation.AutomationRule, t Target) bool {
	title := strings.ToLower(t.Title)
	company := strings.ToLower(t.Company)
	headline := strings.ToLower(t.Headline)

	if len(rule.TargetKeywords) > 0 && !containsAny(rule.TargetKeywords, title, company, headline) {
		return false
	}
	if len(rule.TargetCompanies) > 0 && !containsAny(rule.TargetCompanies, company) {
		return false
	}
	if len(rule.TargetTitles) > 0 && !containsAny(rule.TargetTitles, title, headline) {
		return false
	}
	if containsAny(rule.ExcludeKeywords, title, company, headline) {
		return false
	}
	return true
}

func containsAny(needles []string, haystacks ...string) bool {
	for _, needle := range needles {
		needle = strings.ToLower(needle)
		if needle == "" {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(h, needle) {
				return true
			}
		}
	}
	return false
}
