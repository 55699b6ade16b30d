// Package agentbus is the webhook surface every agent process exposes and the
// client the dashboard uses to reach it.
package agentbus

import (
	"context"

	"github.com/startupx/agents/internal/agent/model"
)

// Metadata carries optional extras sent alongside a message.
type Metadata struct {
	File *model.Attachment `json:"file,omitempty"`
}

// Message is one inbound request addressed to an agent.
type Message struct {
	MessageID string            `json:"message_id,omitempty"`
	Content   string            `json:"content"`
	SessionID string            `json:"session_id,omitempty"`
	SenderID  string            `json:"sender_id,omitempty"`
	File      *model.Attachment `json:"file,omitempty"`
	Metadata  Metadata          `json:"metadata"`
}

// Attachment returns the top-level file, falling back to metadata.file.
func (m Message) Attachment() *model.Attachment {
	if m.File != nil {
		return m.File
	}
	return m.Metadata.File
}

// Handler produces the reply for one message. It must not panic on bad input.
type Handler interface {
	Handle(ctx context.Context, msg Message) string
}

type HandlerFunc func(ctx context.Context, msg Message) string

func (f HandlerFunc) Handle(ctx context.Context, msg Message) string { return f(ctx, msg) }

// Card describes an agent at /.well-known/agent.json.
type Card struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Capabilities map[string][]string `json:"capabilities"`
	WebhookURL   string              `json:"webhook_url"`
}

type acceptedReply struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

type syncReply struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Response  string `json:"response"`
}

type errorReply struct {
	Error string `json:"error"`
}
