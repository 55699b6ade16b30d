package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/startupx/agents/internal/agent/content"
	"github.com/startupx/agents/internal/agent/model"
)

const (
	// inlineTextLimit is the largest text attachment copied into the prompt.
	inlineTextLimit = 5000

	jsonInstruction = "\n\nIMPORTANT: Only respond with clean text in JSON format. Do not repeat raw data or Base64 strings."
	textInstruction = "\n\nIMPORTANT: Only respond with clean text. Do not repeat raw data or Base64 strings."
)

// coordinatorFallback is what the coordinator sees before onboarding.
var coordinatorFallback = map[string]string{
	"name":   "Founder",
	"skills": "",
	"idea":   "",
	"budget": "",
}

// ProfileContext renders the profile line appended to the user's text.
// Specialists omit it when no profile exists; the coordinator always has one.
func ProfileContext(p model.Persona, profile *model.Profile) (string, error) {
	var (
		label   = "\nUser Profile: "
		payload any
	)
	if p.Coordinator {
		label = "\nCurrent User Profile: "
		payload = coordinatorFallback
	}
	if profile != nil {
		clean := *profile
		clean.ProfileImage = content.Sanitize(clean.ProfileImage)
		payload = clean
	}
	if payload == nil {
		return "", nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}
	return label + string(b), nil
}

// UserTurn assembles the human message sent to the model: text, profile,
// attachment notes and the reply instruction, plus an image part when the
// attachment is an image.
func UserTurn(p model.Persona, text, profileContext string, file *model.Attachment) *schema.Message {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString(profileContext)

	if file != nil {
		fmt.Fprintf(&b, "\n[ATTACHMENT: %s (%s)]", file.Name, file.Type)
		if file.IsText() && utf8.RuneCountInString(file.Data) < inlineTextLimit {
			b.WriteString("\nFile Content:\n")
			b.WriteString(file.Data)
		} else {
			b.WriteString(" (Multimodal analysis requested for this file)")
		}
	}

	if p.Output == model.OutputJSON {
		b.WriteString(jsonInstruction)
	} else {
		b.WriteString(textInstruction)
	}

	if !file.IsImage() || file.Data == "" {
		return schema.UserMessage(b.String())
	}

	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: b.String()},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      file.Data,
					MIMEType: file.Type,
				},
			},
		},
	}
}

// HistoryMessages converts stored turns to model messages. Unknown roles are
// dropped.
func HistoryMessages(turns []model.Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case model.RoleHuman:
			out = append(out, schema.UserMessage(t.Content))
		case model.RoleAI:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		}
	}
	return out
}
