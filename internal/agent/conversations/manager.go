package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/startupx/agents/internal/agent/model"
	"github.com/startupx/agents/internal/agent/prompts"
)

// MessagesManager reads and writes one persona's conversation through the store.
type MessagesManager struct {
	store        model.Store
	agentID      string
	historyLimit int
	userID       string
}

func NewMessagesManager(store model.Store, agentID string, config model.ConversationConfig) *MessagesManager {
	limit := config.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	userID := config.UserID
	if userID == "" {
		userID = model.DefaultUserID
	}
	return &MessagesManager{
		store:        store,
		agentID:      agentID,
		historyLimit: limit,
		userID:       userID,
	}
}

// LoadHistory returns the recent turns of the session as chat messages.
func (cm *MessagesManager) LoadHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	turns, err := cm.store.History(ctx, sessionID, cm.agentID, cm.historyLimit)
	if err != nil {
		return nil, err
	}
	return prompts.HistoryMessages(trimTail(turns, cm.historyLimit)), nil
}

// LoadProfile returns the founder profile, nil before onboarding.
func (cm *MessagesManager) LoadProfile(ctx context.Context) (*model.Profile, error) {
	return cm.store.Profile(ctx, cm.userID)
}

func (cm *MessagesManager) SaveHuman(ctx context.Context, sessionID, content string) error {
	return cm.store.SaveMessage(ctx, sessionID, cm.agentID, model.RoleHuman, content)
}

func (cm *MessagesManager) SaveAI(ctx context.Context, sessionID, content string) error {
	return cm.store.SaveMessage(ctx, sessionID, cm.agentID, model.RoleAI, content)
}

// ====================== Helper function ======================
func trimTail(turns []model.Turn, maxTurns int) []model.Turn {
	if len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
