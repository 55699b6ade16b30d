package observers

import (
	"context"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/startupx/agents/internal/agent/model"
	logx "github.com/startupx/agents/pkg/logger"
)

type startKey struct{}

// newModelHandler logs each model call with its latency, token usage and an
// estimated USD cost.
func newModelHandler(personaID, modelName string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *einomodel.CallbackInput) context.Context {
			ev := logx.Debug().Str("persona", personaID).Str("model", modelName)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).Str("user", preview(lastUserContent(input.Messages), 80))
			}
			ev.Msg("AI thinking...")
			return context.WithValue(ctx, startKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *einomodel.CallbackOutput) context.Context {
			ev := logx.Info().Str("persona", personaID).Str("model", modelName)
			if started, ok := ctx.Value(startKey{}).(time.Time); ok {
				ev = ev.Dur("latency", time.Since(started))
			}
			if output != nil && output.Message != nil && output.Message.ResponseMeta != nil && output.Message.ResponseMeta.Usage != nil {
				usage := output.Message.ResponseMeta.Usage
				inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
				ev = ev.
					Int("prompt_tokens", usage.PromptTokens).
					Int("completion_tokens", usage.CompletionTokens).
					Int("total_tokens", usage.TotalTokens).
					Float64("input_cost_usd", inC).
					Float64("output_cost_usd", outC).
					Float64("total_cost_usd", totalC)
			}
			ev.Msg("LLM usage")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("persona", personaID).Str("model", modelName).Msg("LLM call failed")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Role != schema.User {
			continue
		}
		if m.Content != "" {
			return strings.TrimSpace(m.Content)
		}
		for _, p := range m.MultiContent {
			if p.Type == schema.ChatMessagePartTypeText {
				return strings.TrimSpace(p.Text)
			}
		}
	}
	return ""
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
