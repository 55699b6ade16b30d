package model

import "strings"

// Attachment is a file the dashboard forwards with a query. Images arrive as
// data URLs, everything else as plain text.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

func (a *Attachment) IsText() bool {
	return a != nil && strings.HasPrefix(a.Type, "text/")
}

func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.Type, "image/")
}
