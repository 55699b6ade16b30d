package content

import (
	"encoding/base64"
	"strings"
)

// ParseDataURL splits a base64 data URL into its MIME type and decoded bytes.
// ok is false for anything that is not a well-formed base64 data URL.
func ParseDataURL(s string) (mimeType string, data []byte, ok bool) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, false
	}
	mimeType, found = strings.CutSuffix(meta, ";base64")
	if !found {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mimeType, data, true
}
