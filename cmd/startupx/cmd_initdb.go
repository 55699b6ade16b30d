package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/startupx/agents/internal/agent/repo"
	logx "github.com/startupx/agents/pkg/logger"
)

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the history and profile tables, then exit",
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
			if err := store.Close(); err != nil {
				return err
			}
			logx.Info().Str("backend", cfg.Store.Backend).Str("path", cfg.SQLite.Path).Msg("Database initialized")
			return nil
		},
	}
}
