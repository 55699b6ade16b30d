// Package agent wires personas to the store, the model and the webhook server.
package agent

import (
	"context"
	"fmt"
	"strconv"

	einomodel "github.com/cloudwego/eino/components/model"
	"golang.org/x/sync/errgroup"

	"github.com/startupx/agents/internal/agent/chain"
	"github.com/startupx/agents/internal/agent/conversations"
	"github.com/startupx/agents/internal/agent/handler"
	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agentbus"
	logx "github.com/startupx/agents/pkg/logger"
)

// Deps are shared by every persona served from one process.
type Deps struct {
	Store        model.Store
	ChatModel    einomodel.BaseChatModel
	ModelName    string
	// Media resolves image attachments before they reach ChatModel.
	Media chain.MediaResolver
	Conversation model.ConversationConfig
	Bus          agentbus.Config
	// Registry, when set, is shared by every server built from these deps.
	Registry *agentbus.Registry
	// BindHost is the listen host; empty listens on all interfaces.
	BindHost string
}

// NewServer builds the webhook server for one persona.
func NewServer(ctx context.Context, p model.Persona, deps Deps) (*agentbus.Server, error) {
	runner, err := chain.Build(ctx, chain.Config{
		Persona:   p,
		ChatModel: deps.ChatModel,
		ModelName: deps.ModelName,
		Media:     deps.Media,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", p.ID, err)
	}

	mm := conversations.NewMessagesManager(deps.Store, p.ID, deps.Conversation)
	h := handler.New(p, runner, mm)
	return agentbus.NewServer(Card(p, deps.Bus.Host), h, deps.Bus, agentbus.WithRegistry(deps.Registry)), nil
}

// Card describes p as reachable at host.
func Card(p model.Persona, host string) agentbus.Card {
	if host == "" {
		host = "localhost"
	}
	return agentbus.Card{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Capabilities: p.Capabilities,
		WebhookURL:   fmt.Sprintf("http://%s:%d/webhook", host, p.Port),
	}
}

// Serve runs every persona on its own port until ctx is cancelled or one
// server fails.
func Serve(ctx context.Context, personas []model.Persona, deps Deps) error {
	if deps.Registry == nil {
		deps.Registry = agentbus.NewRegistry(deps.Bus.ResponseTTL)
	}
	servers := make([]*agentbus.Server, len(personas))
	for i, p := range personas {
		srv, err := NewServer(ctx, p, deps)
		if err != nil {
			return err
		}
		servers[i] = srv
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range personas {
		srv := servers[i]
		addr := deps.BindHost + ":" + strconv.Itoa(p.Port)
		g.Go(func() error {
			logx.Info().Str("persona", p.ID).Str("address", addr).Msgf("%s starting", p.Name)
			return srv.ListenAndServe(ctx, addr)
		})
	}
	return g.Wait()
}

// LaunchOrder puts specialists first and coordinators last, so the
// coordinator starts once the agents it routes to are up.
func LaunchOrder(personas []model.Persona) []string {
	var specialists, coordinators []string
	for _, p := range personas {
		if p.Coordinator {
			coordinators = append(coordinators, p.ID)
		} else {
			specialists = append(specialists, p.ID)
		}
	}
	return append(specialists, coordinators...)
}
