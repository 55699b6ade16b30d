package agentbus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startupx/agents/internal/agent/model"
)

func echoHandler() Handler {
	return HandlerFunc(func(_ context.Context, msg Message) string {
		reply := "echo:" + msg.Content + ":" + msg.SessionID
		if f := msg.Attachment(); f != nil {
			reply += ":" + f.Name
		}
		return reply
	})
}

func testCard() Card {
	return Card{ID: "core", Name: "StartupX Core Intelligence", WebhookURL: "http://localhost:5005/webhook"}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWebhookSync(t *testing.T) {
	s := NewServer(testCard(), echoHandler(), Config{SyncTimeout: time.Second})

	body := `{"content":"hi","session_id":"s1","metadata":{"file":{"name":"a.txt","type":"text/plain","data":"x"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "echo:hi:s1:a.txt", out["response"])
	assert.NotEmpty(t, out["message_id"])
}

func TestWebhookAsyncThenPoll(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(_ context.Context, msg Message) string {
		<-release
		return "late"
	})
	s := NewServer(testCard(), h, Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"content":"x"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "received", out["status"])
	id, _ := out["message_id"].(string)
	require.NotEmpty(t, id)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/response/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	close(release)
	s.Wait()

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/response/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "late", decodeBody(t, rec)["response"])
}

func TestWebhookSyncTimeout(t *testing.T) {
	release := make(chan struct{})
	h := HandlerFunc(func(_ context.Context, _ Message) string {
		<-release
		return "too late"
	})
	s := NewServer(testCard(), h, Config{SyncTimeout: 20 * time.Millisecond})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(`{"content":"x"}`)))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	close(release)
	s.Wait()
}

func TestWebhookRecoversHandlerPanic(t *testing.T) {
	h := HandlerFunc(func(_ context.Context, _ Message) string { panic("boom") })
	s := NewServer(testCard(), h, Config{SyncTimeout: time.Second})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(`{"content":"x"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Error: boom", decodeBody(t, rec)["response"])
}

func TestWebhookBadJSON(t *testing.T) {
	s := NewServer(testCard(), echoHandler(), Config{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAPIKey(t *testing.T) {
	s := NewServer(testCard(), echoHandler(), Config{APIKey: "secret", SyncTimeout: time.Second})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(`{"content":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhook/sync", strings.NewReader(`{"content":"x"}`))
	req.Header.Set(APIKeyHeader, "secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// card and health stay public
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentCard(t *testing.T) {
	s := NewServer(testCard(), echoHandler(), Config{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var card Card
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, testCard(), card)
}

func TestMessageAttachmentPrefersTopLevel(t *testing.T) {
	top := &model.Attachment{Name: "top"}
	meta := &model.Attachment{Name: "meta"}
	assert.Equal(t, top, Message{File: top, Metadata: Metadata{File: meta}}.Attachment())
	assert.Equal(t, meta, Message{Metadata: Metadata{File: meta}}.Attachment())
	assert.Nil(t, Message{}.Attachment())
}

func TestClientSendSync(t *testing.T) {
	s := NewServer(testCard(), echoHandler(), Config{APIKey: "k", SyncTimeout: time.Second})
	ts := httptest.NewServer(s)
	defer ts.Close()

	c := NewClient(time.Second, "k")
	reply, err := c.SendSync(context.Background(), ts.URL, Message{Content: "hello", SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, reply.StatusCode)

	var out syncReply
	require.NoError(t, json.Unmarshal(reply.Body, &out))
	assert.Equal(t, "echo:hello:s", out.Response)
}

func TestClientSendSyncUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewClient(time.Second, "")
	_, err := c.SendSync(context.Background(), url, Message{Content: "x"})
	require.Error(t, err)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := NewServer(testCard(), echoHandler(), Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
