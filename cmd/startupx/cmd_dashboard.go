package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/startupx/agents/internal/agent/personas"
	"github.com/startupx/agents/internal/agent/repo"
	"github.com/startupx/agents/internal/dashboard"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the founder dashboard and agent proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}

			store, err := repo.Open(cmd.Context(), cfg.repoConfig())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			agents := dashboard.AgentsFrom(personas.MustDefault().All())
			return dashboard.NewServer(cfg.Dashboard, agents, store).ListenAndServe(cmd.Context())
		},
	}
}
