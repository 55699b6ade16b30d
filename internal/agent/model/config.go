package model

import "time"

// ================ Config ================
type LLMConfig struct {
	APIKey         string  `envconfig:"GOOGLE_API_KEY" required:"true"`
	BaseURL        string  `envconfig:"GEMINI_BASE_URL"`
	Model          string  `envconfig:"LLM_MODEL" default:"gemini-flash-latest"`
	MaxTokens      int     `envconfig:"LLM_MAX_TOKENS" default:"8192"`
	Temperature    float32 `envconfig:"LLM_TEMPERATURE" default:"1.0"`
	ThinkingBudget int32   `envconfig:"LLM_THINKING_BUDGET" default:"0"`
}

type ConversationConfig struct {
	HistoryLimit int           `envconfig:"HISTORY_LIMIT" default:"10"`
	TTL          time.Duration `envconfig:"HISTORY_TTL" default:"0s"`
	UserID       string        `envconfig:"PROFILE_USER_ID" default:"default_user"`
}

type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"sqlite"`
}

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	DefaultSessionID = "default_session"
	DefaultUserID    = "default_user"
)
