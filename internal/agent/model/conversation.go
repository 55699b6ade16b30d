package model

import (
	"context"
	"time"
)

// Role values stored in chat_history.role.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// Turn is one persisted chat_history row as returned to callers.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

type HistoryRepository interface {
	// SaveMessage appends a sanitized turn for the (session, agent) pair
	SaveMessage(ctx context.Context, sessionID, agentID, role, content string) error

	// History returns the newest limit turns for the pair, oldest first
	History(ctx context.Context, sessionID, agentID string, limit int) ([]Turn, error)
}

type ProfileRepository interface {
	// UpdateProfile inserts or fully overwrites the user's profile row
	UpdateProfile(ctx context.Context, userID string, p Profile) error

	// Profile returns nil without error when the user has no profile
	Profile(ctx context.Context, userID string) (*Profile, error)
}

// Store is what every StartupX process opens at startup.
type Store interface {
	HistoryRepository
	ProfileRepository
	Close() error
}

// Profile is the founder's onboarding data, one row per user.
type Profile struct {
	StartupName    string `json:"startup_name"`
	FounderName    string `json:"founder_name"`
	Stage          string `json:"stage"`
	ProblemSolved  string `json:"problem_solved"`
	ProductService string `json:"product_service"`
	TargetMarket   string `json:"target_market"`
	RevenueModel   string `json:"revenue_model"`
	FundingStatus  string `json:"funding_status"`
	ProfileImage   string `json:"profile_image"`
}

// DefaultProfile is what the dashboard shows before onboarding.
func DefaultProfile() Profile {
	return Profile{
		StartupName:    "New Venture",
		FounderName:    "New Founder",
		Stage:          "Ideation",
		ProblemSolved:  "Not set",
		ProductService: "Not set",
		TargetMarket:   "Not set",
		RevenueModel:   "Not set",
		FundingStatus:  "Not set",
	}
}
