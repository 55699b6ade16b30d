package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/personas"
	"github.com/startupx/agents/internal/agent/repo"
	"github.com/startupx/agents/internal/agentbus"
	"github.com/startupx/agents/pkg/sqlite"
)

type staticModel struct{ reply string }

func (m staticModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m staticModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, _ := m.Generate(ctx, in, opts...)
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func newDeps(t *testing.T, reply string) Deps {
	t.Helper()
	cfg := sqlite.Config{Path: filepath.Join(t.TempDir(), "memory.db"), BusyTimeout: 1000}
	db, err := cfg.New()
	require.NoError(t, err)
	store, err := repo.NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return Deps{
		Store:        store,
		ChatModel:    staticModel{reply: reply},
		ModelName:    "gemini-flash-latest",
		Conversation: model.ConversationConfig{HistoryLimit: 10},
		Bus:          agentbus.Config{SyncTimeout: 2 * time.Second},
	}
}

func TestEveryEmbeddedPersonaServes(t *testing.T) {
	deps := newDeps(t, "```json\n{\"ok\": true}\n```")
	for _, p := range personas.MustDefault().All() {
		t.Run(p.ID, func(t *testing.T) {
			srv, err := NewServer(context.Background(), p, deps)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(`{"content":"hello","session_id":"s"}`)))
			require.Equal(t, http.StatusOK, rec.Code)

			var out struct {
				Response string `json:"response"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			if p.Output == model.OutputJSON {
				assert.Equal(t, `{"ok": true}`, out.Response)
			} else {
				assert.Contains(t, out.Response, "```json")
			}
		})
	}
}

func TestServersShareRegistry(t *testing.T) {
	deps := newDeps(t, "ok")
	deps.Registry = agentbus.NewRegistry(time.Minute)

	all := personas.MustDefault().All()
	first, err := NewServer(context.Background(), all[0], deps)
	require.NoError(t, err)
	second, err := NewServer(context.Background(), all[1], deps)
	require.NoError(t, err)

	assert.Same(t, deps.Registry, first.Registry())
	assert.Same(t, deps.Registry, second.Registry())

	rec := httptest.NewRecorder()
	first.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(`{"message_id":"shared-1","content":"hello"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	reply, ok := second.Registry().Response("shared-1")
	require.True(t, ok)
	assert.NotEmpty(t, reply)
}

func TestCard(t *testing.T) {
	p, ok := personas.MustDefault().Get("ip_shield")
	require.True(t, ok)
	card := Card(p, "")
	assert.Equal(t, "ip_shield", card.ID)
	assert.Equal(t, "http://localhost:5002/webhook", card.WebhookURL)
	assert.NotEmpty(t, card.Capabilities)
}

func TestLaunchOrder(t *testing.T) {
	order := LaunchOrder(personas.MustDefault().All())
	require.Len(t, order, 5)
	assert.Equal(t, "core", order[len(order)-1])
	assert.NotContains(t, order[:4], "core")
}

func TestServeStopsOnCancel(t *testing.T) {
	deps := newDeps(t, "{}")
	deps.BindHost = "127.0.0.1"
	p := model.Persona{ID: "tmp", Name: "Tmp", Port: freePort(t), Output: model.OutputJSON, SystemPrompt: "x"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, []model.Persona{p}, deps) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, port, ok := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	require.True(t, ok)
	var n int
	_, err := fmt.Sscanf(port, "%d", &n)
	require.NoError(t, err)
	return n
}
