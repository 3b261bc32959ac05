package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-outreach/internal/features/automation"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// Drafter produces message or comment text for generative actions.
type Drafter interface {
	Draft(ctx context.Context, rule *automation.AutomationRule, t Target) (string, error)
}

// TemplateDrafter renders the rule's template, falling back to the AI prompt
// treated as a template.
type TemplateDrafter struct{}

func (TemplateDrafter) Draft(_ context.Context, rule *automation.AutomationRule, t Target) (string, error) {
	src := rule.MessageTemplate
	if src == "" {
		src = rule.AIPrompt
	}
	return strings.TrimSpace(automation.RenderTemplate(src, t.Fields())), nil
}

const draftSystemPrompt = "You write short, friendly LinkedIn outreach text. " +
	"Reply with the text only. Keep it under 300 characters and never invent facts about the recipient."

type OpenAIDrafter struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIDrafter(apiKey, model string, logger *zap.Logger) *OpenAIDrafter {
	return &OpenAIDrafter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger.Named("drafter"),
	}
}

func (d *OpenAIDrafter) Draft(ctx context.Context, rule *automation.AutomationRule, t Target) (string, error) {
	prompt := automation.RenderTemplate(rule.AIPrompt, t.Fields())
	if prompt == "" {
		prompt = automation.RenderTemplate(rule.MessageTemplate, t.Fields())
	}
	user := fmt.Sprintf("%s\n\nRecipient: %s, %s at %s. Headline: %s",
		prompt, t.Name, t.Title, t.Company, t.Headline)

	completion, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(draftSystemPrompt),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("draft: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("draft: no response from openai")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	d.logger.Debug("drafted text",
		zap.String("rule_id", rule.ID.Hex()),
		zap.String("target_id", t.ID),
		zap.Int64("total_tokens", completion.Usage.TotalTokens))
	return text, nil
}
