// Package chain compiles a persona's prompt template and the chat model into
// one runnable.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/observers"
	"github.com/startupx/agents/internal/agent/prompts"
	logx "github.com/startupx/agents/pkg/logger"
)

// Runner executes the compiled chain for one user turn.
type Runner interface {
	Invoke(ctx context.Context, history []*schema.Message, input *schema.Message) (*schema.Message, error)
}

// Config holds everything needed to build a persona's chain.
type Config struct {
	Persona   model.Persona
	ChatModel einomodel.BaseChatModel
	ModelName string
	// Media, when set, resolves image parts of the user turn before the
	// model sees them.
	Media MediaResolver
	// Now defaults to time.Now.
	Now func() time.Time
}

type chainRunner struct {
	persona   model.Persona
	runnable  compose.Runnable[map[string]any, *schema.Message]
	callbacks callbacks.Handler
	media     MediaResolver
	now       func() time.Time
}

func (r *chainRunner) Invoke(ctx context.Context, history []*schema.Message, input *schema.Message) (*schema.Message, error) {
	if r.media != nil {
		if err := r.media.Resolve(ctx, input); err != nil {
			return nil, err
		}
	}
	vars := prompts.Variables(r.persona, r.now(), history, []*schema.Message{input})
	out, err := r.runnable.Invoke(ctx, vars, compose.WithCallbacks(r.callbacks))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("chat model returned no message")
	}
	return out, nil
}

// Build validates the persona's system prompt and compiles
// ChatTemplate -> ChatModel.
func Build(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if _, err := prompts.RenderSystem(ctx, cfg.Persona, cfg.Now()); err != nil {
		return nil, err
	}

	runnable, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(prompts.ChatTemplate(cfg.Persona)).
		AppendChatModel(cfg.ChatModel).
		Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Str("persona", cfg.Persona.ID).Msg("Error compiling chain")
		return nil, fmt.Errorf("error compiling chain: %w", err)
	}

	logx.Debug().Str("persona", cfg.Persona.ID).Msg("Chain compiled successfully")
	return &chainRunner{
		persona:   cfg.Persona,
		runnable:  runnable,
		callbacks: observers.NewAllCallbacks(cfg.Persona.ID, cfg.ModelName),
		media:     cfg.Media,
		now:       cfg.Now,
	}, nil
}
