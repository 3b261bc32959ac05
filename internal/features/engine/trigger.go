package engine

import (
	"time"

	"go-outreach/internal/config"
	"go-outreach/internal/features/account"
	"go-outreach/internal/features/automation"
)

// nextEligibleHorizon bounds the search; any weekly pattern repeats within it.
const nextEligibleHorizon = 8

const (
	ReasonRuleInactive       = "rule_inactive"
	ReasonAccountUnavailable = "account_unavailable"
	ReasonDayNotAllowed      = "day_not_allowed"
	ReasonOutsideWindow      = "outside_window"
)

// Eligibility is the scheduler's answer for one rule at one instant.
type Eligibility struct {
	Eligible       bool           `json:"eligible"`
	Reason         string         `json:"reason,omitempty"`
	NextEligibleAt *time.Time     `json:"nextEligibleAt,omitempty"`
	Location       *time.Location `json:"-"`
}

type TriggerScheduler struct {
	fallback *time.Location
}

func NewTriggerScheduler(cfg *config.Config) *TriggerScheduler {
	return &TriggerScheduler{fallback: cfg.Location()}
}

// Location is the zone used for the rule's windows and calendar day.
func (s *TriggerScheduler) Location(acct *account.LinkedInAccount) *time.Location {
	return acct.Location(s.fallback)
}

// Check gates a pass. Lifecycle flags and account availability are checked
// before the time windows.
func (s *TriggerScheduler) Check(rule *automation.AutomationRule, acct *account.LinkedInAccount, now time.Time) Eligibility {
	loc := s.Location(acct)
	e := Eligibility{Location: loc}
	if !rule.Runnable() {
		e.Reason = ReasonRuleInactive
		return e
	}
	if acct != nil && !acct.Available() {
		e.Reason = ReasonAccountUnavailable
		return e
	}
	if IsEligibleNow(rule, loc, now) {
		e.Eligible = true
		return e
	}
	if !rule.AllowsDay(now.In(loc).Weekday()) {
		e.Reason = ReasonDayNotAllowed
	} else {
		e.Reason = ReasonOutsideWindow
	}
	if next, ok := NextEligibleTime(rule, loc, now); ok {
		e.NextEligibleAt = &next
	}
	return e
}

// IsEligibleNow reports whether now falls inside one of the rule's windows on
// an allowed day. A rule that is not runnable is never eligible.
func IsEligibleNow(rule *automation.AutomationRule, loc *time.Location, now time.Time) bool {
	return rule.Runnable() && inWindow(rule, now.In(loc))
}

func inWindow(rule *automation.AutomationRule, local time.Time) bool {
	if !rule.AllowsDay(local.Weekday()) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	for _, w := range rule.Windows() {
		if w.Contains(minute) {
			return true
		}
	}
	return false
}

// NextEligibleTime returns the earliest instant at or after now that satisfies
// the window and day constraints. ok is false for rules that are not runnable
// or have no reachable window.
func NextEligibleTime(rule *automation.AutomationRule, loc *time.Location, now time.Time) (time.Time, bool) {
	if !rule.Runnable() || len(rule.Windows()) == 0 {
		return time.Time{}, false
	}
	local := now.In(loc)
	if inWindow(rule, local) {
		return now, true
	}

	var best time.Time
	found := false
	consider := func(t time.Time) {
		if t.Before(now) || !inWindow(rule, t) {
			return
		}
		if !found || t.Before(best) {
			best, found = t, true
		}
	}
	for offset := 0; offset < nextEligibleHorizon; offset++ {
		midnight := time.Date(local.Year(), local.Month(), local.Day()+offset, 0, 0, 0, 0, loc)
		// Wrapping windows can open at local midnight.
		consider(midnight)
		for _, w := range rule.Windows() {
			consider(time.Date(local.Year(), local.Month(), local.Day()+offset, w.Start/60, w.Start%60, 0, 0, loc))
		}
		if found {
			break
		}
	}
	return best, found
}
