package prompts

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/startupx/agents/internal/agent/model"
)

// Variable names understood by ChatTemplate.
const (
	VarHistory = "history"
	VarInput   = "input"
	VarPersona = "Persona"
	VarToday   = "Today"
)

// ChatTemplate is system prompt, then history, then the new user turn. Only
// the system prompt is a Go template; history and input are inserted verbatim.
func ChatTemplate(p model.Persona) prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(p.SystemPrompt),
		schema.MessagesPlaceholder(VarHistory, true),
		schema.MessagesPlaceholder(VarInput, false),
	)
}

// Variables builds the template input for one invocation.
func Variables(p model.Persona, now time.Time, history, input []*schema.Message) map[string]any {
	return map[string]any{
		VarPersona: p,
		VarToday:   now.Format("Monday, 2 January 2006"),
		VarHistory: history,
		VarInput:   input,
	}
}

// RenderSystem renders only the system prompt. Used to validate a persona at
// startup so template errors surface before the first message.
func RenderSystem(ctx context.Context, p model.Persona, now time.Time) (string, error) {
	tpl := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(p.SystemPrompt))
	msgs, err := tpl.Format(ctx, map[string]any{
		VarPersona: p,
		VarToday:   now.Format("Monday, 2 January 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("render system prompt for %s: %w", p.ID, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("render system prompt for %s: empty result", p.ID)
	}
	return msgs[0].Content, nil
}
