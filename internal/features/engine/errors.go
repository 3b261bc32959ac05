package engine

import (
	"errors"

	"go-outreach/internal/features/automation"
)

var (
	ErrRuleNotFound  = automation.ErrRuleNotFound
	ErrRuleNotActive = errors.New("rule is not active")
	// ErrRuleAlreadyRunning is a conflict: another pass holds the run marker.
	ErrRuleAlreadyRunning = errors.New("rule is already running")
	// ErrConsecutiveFailureAbort means the pass stopped and the rule is now ERROR.
	ErrConsecutiveFailureAbort = errors.New("too many consecutive failures, rule moved to ERROR")
	// ErrActionTimeout is recorded as a FAILED outcome; the pass continues.
	ErrActionTimeout = errors.New("action timed out")
	// ErrTargetResolution means the candidate store failed; the rule stays ACTIVE.
	ErrTargetResolution = errors.New("target resolution failed")
	ErrNoRunInProgress  = errors.New("no run in progress")
)
