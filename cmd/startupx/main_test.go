package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"agent", "serve-all", "dashboard", "launch", "initdb"}, names)
}

func TestLoadAppConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	os.Unsetenv("STORE_BACKEND")

	cfg, err := loadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "startupx_memory.db", cfg.SQLite.Path)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 10, cfg.Conversation.HistoryLimit)
	assert.Equal(t, ":8081", cfg.Dashboard.Addr)
	assert.Equal(t, 60*time.Second, cfg.Bus.SyncTimeout)
	assert.Equal(t, 2*time.Second, cfg.Supervisor.StartDelay)
	assert.Equal(t, 5*time.Second, cfg.Supervisor.MonitorInterval)
	assert.Equal(t, 0, cfg.Supervisor.MaxRestarts)
}

func TestLoadAppConfigOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("AGENT_HOST", "agents.internal")
	t.Setenv("SUPERVISOR_MAX_RESTARTS", "3")

	cfg, err := loadAppConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "/tmp/x.db", cfg.SQLite.Path)
	assert.Equal(t, "agents.internal", cfg.Bus.Host)
	assert.Equal(t, "agents.internal", cfg.Dashboard.AgentHost)
	assert.Equal(t, 3, cfg.Supervisor.MaxRestarts)
}

func TestLoadAgentConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("GOOGLE_API_KEY")
	_, err := loadAgentConfig()
	assert.Error(t, err)

	t.Setenv("GOOGLE_API_KEY", "k")
	cfg, err := loadAgentConfig()
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-flash-latest", cfg.LLM.Model)
}

func TestInitDBCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "memory.db")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("STORE_BACKEND", "sqlite")

	root := newRootCmd()
	root.SetArgs([]string{"initdb", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, root.Execute())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAgentCommandRejectsUnknownPersona(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"agent", "nope"})
	assert.Error(t, root.Execute())
}
