package observers

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" first "),
		schema.AssistantMessage("reply", nil),
		{Role: schema.User, MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: "second"},
		}},
		nil,
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Equal(t, "first", lastUserContent(msgs[:3]))
	assert.Equal(t, "", lastUserContent(nil))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "ééé...", preview("éééé", 3))
}

func TestNewAllCallbacks(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks("core", "gemini-flash-latest"))
}
