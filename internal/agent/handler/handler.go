// Package handler runs one persona's request cycle: profile and history in,
// model reply out, both turns persisted.
package handler

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/startupx/agents/internal/agent/chain"
	"github.com/startupx/agents/internal/agent/content"
	"github.com/startupx/agents/internal/agent/conversations"
	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/prompts"
	"github.com/startupx/agents/internal/agentbus"
	errx "github.com/startupx/agents/internal/core/error"
	logx "github.com/startupx/agents/pkg/logger"
)

const logPreviewRunes = 50

type Handler struct {
	persona  model.Persona
	runner   chain.Runner
	messages *conversations.MessagesManager
	log      zerolog.Logger
}

func New(p model.Persona, runner chain.Runner, messages *conversations.MessagesManager) *Handler {
	return &Handler{
		persona:  p,
		runner:   runner,
		messages: messages,
		log:      logx.Component("handler").With().Str("persona", p.ID).Logger(),
	}
}

// Handle never fails: errors become the persona's error reply.
func (h *Handler) Handle(ctx context.Context, msg agentbus.Message) string {
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = model.DefaultSessionID
	}

	h.log.Info().
		Str("session_id", sessionID).
		Str("message_id", msg.MessageID).
		Msgf("[%s] Processing message: %s", h.persona.LogLabel, preview(msg.Content))

	reply, err := h.process(ctx, sessionID, msg.Content, msg.Attachment())
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msgf("[%s] Error", h.persona.LogLabel)
		return h.errorReply(err)
	}
	return reply
}

func (h *Handler) process(ctx context.Context, sessionID, text string, file *model.Attachment) (string, error) {
	profile, err := h.messages.LoadProfile(ctx)
	if err != nil {
		return "", err
	}
	profileContext, err := prompts.ProfileContext(h.persona, profile)
	if err != nil {
		return "", err
	}

	history, err := h.messages.LoadHistory(ctx, sessionID)
	if err != nil {
		return "", err
	}

	input := prompts.UserTurn(h.persona, text, profileContext, file)

	if err := h.messages.SaveHuman(ctx, sessionID, text); err != nil {
		return "", err
	}

	out, err := h.runner.Invoke(ctx, history, input)
	if err != nil {
		return "", errx.WrapLLM(err)
	}

	reply := content.Flatten(out)
	if h.persona.Output == model.OutputJSON {
		reply = content.StripCodeFence(reply)
	}

	if err := h.messages.SaveAI(ctx, sessionID, reply); err != nil {
		return "", err
	}
	return reply, nil
}

func (h *Handler) errorReply(err error) string {
	if h.persona.Output != model.OutputJSON {
		return "Error: " + err.Error()
	}
	b, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return `{"error":"` + errx.SystemErrorMessage + `"}`
	}
	return string(b)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= logPreviewRunes {
		return s
	}
	return string(r[:logPreviewRunes])
}
