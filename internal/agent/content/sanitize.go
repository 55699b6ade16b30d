// Package content cleans text on its way into storage and on its way back
// from the model.
package content

import (
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	DataStrippedSuffix = ";base64,...[DATA STRIPPED]..."
	ClutterStripped    = "[LARGE DATA CLUTTER STRIPPED]"

	// clutterMinLen and clutterProbeLen are measured in characters, not bytes.
	clutterMinLen   = 2000
	clutterProbeLen = 500
)

// Sanitize strips base64 payloads and large unbroken blobs from text before
// it is persisted.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	if strings.Contains(s, "data:") && strings.Contains(s, ";base64,") {
		prefix, _, _ := strings.Cut(s, ";base64,")
		return prefix + DataStrippedSuffix
	}

	if utf8.RuneCountInString(s) > clutterMinLen && !strings.Contains(firstRunes(s, clutterProbeLen), " ") {
		return ClutterStripped
	}

	return s
}

// SanitizeParts keeps only the text portions of a multimodal message.
func SanitizeParts(parts []schema.ChatMessagePart) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type == schema.ChatMessagePartTypeText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
