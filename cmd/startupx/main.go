package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	logx "github.com/startupx/agents/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "startupx",
		Short:         "StartupX agent network: specialist agents, coordinator, dashboard and launcher",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			loadDotEnv(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(
		newAgentCmd(),
		newServeAllCmd(),
		newDashboardCmd(),
		newLaunchCmd(),
		newInitDBCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logx.Error().Err(err).Msg("startupx failed")
		stop()
		os.Exit(1)
	}
}
