package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/startupx/agents/internal/agent"
	"github.com/startupx/agents/internal/agent/personas"
	"github.com/startupx/agents/internal/supervisor"
	logx "github.com/startupx/agents/pkg/logger"
)

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Start every agent and the dashboard as child processes and watch them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}

			order := agent.LaunchOrder(personas.MustDefault().All())
			logx.Info().Strs("agents", order).Msg("Starting StartupX Multi-Agent System...")
			logx.Info().Str("address", cfg.Dashboard.Addr).Msg("StartupX Dashboard will be served")

			return supervisor.New(cfg.Supervisor, exe, supervisor.AgentProcesses(order)).Run(cmd.Context())
		},
	}
}
