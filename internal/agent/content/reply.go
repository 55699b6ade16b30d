package content

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

const (
	jsonFence = "```json"
	fence     = "```"
)

// StripCodeFence returns the body of the first fenced block, preferring a
// ```json block. Text without fences is returned unchanged.
func StripCodeFence(s string) string {
	if _, after, ok := strings.Cut(s, jsonFence); ok {
		body, _, _ := strings.Cut(after, fence)
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(s, fence); ok {
		body, _, _ := strings.Cut(after, fence)
		return strings.TrimSpace(body)
	}
	return s
}

// Flatten coerces a model reply into plain text. Multi-part replies are
// joined with a single space.
func Flatten(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Content != "" || len(msg.MultiContent) == 0 {
		return msg.Content
	}
	texts := make([]string, 0, len(msg.MultiContent))
	for _, p := range msg.MultiContent {
		if p.Type == schema.ChatMessagePartTypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}
