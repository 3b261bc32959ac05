package automation

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ScriptChecker compiles a targeting filter script without running it.
type ScriptChecker func(src string) error

// Validate checks a rule as submitted by a user. checkScript may be nil.
func (r *AutomationRule) Validate(ctx context.Context, checkScript ScriptChecker) error {
	return validation.ValidateStructWithContext(ctx, r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.ActionType, validation.Required, validation.In(ActionTypes...)),
		validation.Field(&r.Type, validation.In(RuleTypes...)),
		validation.Field(&r.DailyLimit, validation.Required, validation.Min(1)),
		validation.Field(&r.TotalLimit, validation.By(positiveWhenSet)),
		validation.Field(&r.DelayMin, validation.Required, validation.Min(MinDelaySeconds)),
		validation.Field(&r.DelayMax, validation.Required, validation.Min(r.DelayMin)),
		validation.Field(&r.TriggerTime, validation.Required, validation.By(validTriggerTime)),
		validation.Field(&r.Status, validation.In(StatusDraft, StatusActive, StatusPaused)),
		validation.Field(&r.MessageTemplate, validation.When(r.ActionType == ActionMessage && r.AIPrompt == "", validation.Required)),
		validation.Field(&r.AIPrompt, validation.When(r.ActionType == ActionAIComment, validation.Required)),
		validation.Field(&r.FilterScript, validation.When(checkScript != nil && r.FilterScript != "", validation.By(func(value interface{}) error {
			return checkScript(value.(string))
		}))),
	)
}

func positiveWhenSet(value interface{}) error {
	limit, _ := value.(*int)
	if limit != nil && *limit < 1 {
		return errors.New("must be no less than 1")
	}
	return nil
}

func validTriggerTime(value interface{}) error {
	raw, _ := value.(string)
	_, err := ParseTriggerWindows(raw)
	return err
}
