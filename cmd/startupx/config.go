package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/repo"
	"github.com/startupx/agents/internal/agentbus"
	"github.com/startupx/agents/internal/core"
	"github.com/startupx/agents/internal/dashboard"
	"github.com/startupx/agents/internal/supervisor"
	logx "github.com/startupx/agents/pkg/logger"
	pkgredis "github.com/startupx/agents/pkg/redis"
	"github.com/startupx/agents/pkg/sqlite"
)

// AppConfig is shared by every command, sourced from environment variables
// (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Store  model.StoreConfig
	SQLite sqlite.Config
	Redis  pkgredis.Config

	Conversation model.ConversationConfig
	Bus          agentbus.Config
	Dashboard    dashboard.Config
	Supervisor   supervisor.Config
}

// AgentConfig adds the LLM provider, required only by commands that serve personas.
type AgentConfig struct {
	AppConfig
	LLM model.LLMConfig

	// BindHost is where agent servers listen; empty means all interfaces.
	BindHost string `envconfig:"AGENT_BIND_HOST"`
}

func (c AppConfig) repoConfig() repo.Config {
	return repo.Config{
		Store:        c.Store,
		SQLite:       c.SQLite,
		Redis:        c.Redis,
		Conversation: c.Conversation,
	}
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("Could not load .env file")
	}
}

func initLogger(env string) {
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(env)})
}

func loadAppConfig() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}
	initLogger(cfg.Environment)
	return cfg, nil
}

func loadAgentConfig() (AgentConfig, error) {
	var cfg AgentConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}
	initLogger(cfg.Environment)
	return cfg, nil
}
