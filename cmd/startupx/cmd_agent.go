package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/startupx/agents/internal/agent"
	"github.com/startupx/agents/internal/agent/chain"
	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/personas"
	"github.com/startupx/agents/internal/agent/repo"
)

func newAgentCmd() *cobra.Command {
	catalog := personas.MustDefault()

	return &cobra.Command{
		Use:       "agent <id>",
		Short:     "Run one agent persona (" + strings.Join(catalog.IDs(), ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: catalog.IDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown agent %q (known: %s)", args[0], strings.Join(catalog.IDs(), ", "))
			}
			return serveAgents(cmd.Context(), []model.Persona{p})
		},
	}
}

func newServeAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-all",
		Short: "Run every agent persona in one process, each on its own port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveAgents(cmd.Context(), personas.MustDefault().All())
		},
	}
}

func serveAgents(ctx context.Context, ps []model.Persona) error {
	cfg, err := loadAgentConfig()
	if err != nil {
		return err
	}

	store, err := repo.Open(ctx, cfg.repoConfig())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	llm, err := chain.NewGemini(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	return agent.Serve(ctx, ps, agent.Deps{
		Store:        store,
		ChatModel:    llm.ChatModel,
		ModelName:    cfg.LLM.Model,
		Media:        llm.Media,
		Conversation: cfg.Conversation,
		Bus:          cfg.Bus,
		BindHost:     cfg.BindHost,
	})
}
