package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/prompts"
)

const logoDataURL = "data:image/png;base64,iVBORw0KGgo="

var logoBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type fakeUploader struct {
	uri  string
	err  error
	got  []byte
	mime string
}

func (f *fakeUploader) Upload(_ context.Context, data []byte, mimeType string) (string, error) {
	f.got, f.mime = data, mimeType
	return f.uri, f.err
}

func imageTurn() *schema.Message {
	file := &model.Attachment{Name: "logo.png", Type: "image/png", Data: logoDataURL}
	return prompts.UserTurn(testPersona(), "look", "", file)
}

func TestUploadResolver(t *testing.T) {
	up := &fakeUploader{uri: "https://files.example/logo"}
	msg := imageTurn()

	require.NoError(t, NewUploadResolver(up).Resolve(context.Background(), msg))
	assert.Equal(t, logoBytes, up.got)
	assert.Equal(t, "image/png", up.mime)

	img := msg.MultiContent[1].ImageURL
	assert.Equal(t, "https://files.example/logo", img.URI)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Empty(t, img.URL)
	assert.Contains(t, msg.MultiContent[0].Text, "[ATTACHMENT: logo.png (image/png)]")
}

func TestUploadResolverKeepsRemoteURL(t *testing.T) {
	up := &fakeUploader{}
	msg := &schema.Message{Role: schema.User, MultiContent: []schema.ChatMessagePart{
		{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: "https://cdn.example/logo.png", MIMEType: "image/png"}},
	}}

	require.NoError(t, NewUploadResolver(up).Resolve(context.Background(), msg))
	assert.Nil(t, up.got)
	assert.Equal(t, "https://cdn.example/logo.png", msg.MultiContent[0].ImageURL.URI)
}

func TestInvokeResolvesImagesBeforeModel(t *testing.T) {
	cm := &fakeChatModel{reply: schema.AssistantMessage("nice logo", nil)}
	up := &fakeUploader{uri: "https://files.example/logo"}
	r, err := Build(context.Background(), Config{Persona: testPersona(), ChatModel: cm, Media: NewUploadResolver(up), Now: fixedNow})
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), nil, imageTurn())
	require.NoError(t, err)

	require.Len(t, cm.seen, 2)
	parts := cm.seen[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, "https://files.example/logo", parts[1].ImageURL.URI)
}

func TestInvokeFailsWhenUploadFails(t *testing.T) {
	cm := &fakeChatModel{reply: schema.AssistantMessage("unused", nil)}
	up := &fakeUploader{err: errors.New("quota")}
	r, err := Build(context.Background(), Config{Persona: testPersona(), ChatModel: cm, Media: NewUploadResolver(up), Now: fixedNow})
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), nil, imageTurn())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
	assert.Nil(t, cm.seen)
}

// geminiStub answers the Files API resumable upload and generateContent.
type geminiStub struct {
	mu       sync.Mutex
	uploaded []byte
	generate []byte
}

const stubFileURI = "https://generativelanguage.googleapis.com/v1beta/files/logo"

func (g *geminiStub) handler(baseURL func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		g.mu.Lock()
		defer g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/resumable/"):
			g.uploaded = body
			w.Header().Set("X-Goog-Upload-Status", "final")
			_, _ = io.WriteString(w, `{"file":{"name":"files/logo","uri":"`+stubFileURI+`","mimeType":"image/png","state":"ACTIVE"}}`)
		case strings.HasSuffix(r.URL.Path, "/files"):
			w.Header().Set("X-Goog-Upload-URL", baseURL()+"/resumable/logo")
			_, _ = io.WriteString(w, `{}`)
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			g.generate = body
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"nice logo"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestImageAttachmentReachesGemini(t *testing.T) {
	stub := &geminiStub{}
	var ts *httptest.Server
	ts = httptest.NewServer(stub.handler(func() string { return ts.URL }))
	defer ts.Close()

	ctx := context.Background()
	llm, err := NewGemini(ctx, model.LLMConfig{
		APIKey:      "test-key",
		BaseURL:     ts.URL,
		Model:       "gemini-flash-latest",
		MaxTokens:   256,
		Temperature: 1,
	})
	require.NoError(t, err)

	r, err := Build(ctx, Config{Persona: testPersona(), ChatModel: llm.ChatModel, Media: llm.Media, ModelName: "gemini-flash-latest", Now: fixedNow})
	require.NoError(t, err)

	out, err := r.Invoke(ctx, nil, imageTurn())
	require.NoError(t, err)
	assert.Equal(t, "nice logo", out.Content)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, logoBytes, stub.uploaded)

	var req struct {
		Contents []struct {
			Parts []map[string]json.RawMessage `json:"parts"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(stub.generate, &req))
	require.NotEmpty(t, req.Contents)
	last := req.Contents[len(req.Contents)-1]

	var fileURIs []string
	for _, part := range last.Parts {
		raw, ok := part["fileData"]
		if !ok {
			continue
		}
		var fd struct {
			FileURI  string `json:"fileUri"`
			MIMEType string `json:"mimeType"`
		}
		require.NoError(t, json.Unmarshal(raw, &fd))
		assert.Equal(t, "image/png", fd.MIMEType)
		fileURIs = append(fileURIs, fd.FileURI)
	}
	assert.Equal(t, []string{stubFileURI}, fileURIs)
	assert.NotContains(t, string(stub.generate), "iVBORw0KGgo")
}
