package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/startupx/agents/internal/agent/content"
	"github.com/startupx/agents/internal/agent/model"
	errx "github.com/startupx/agents/internal/core/error"
	logx "github.com/startupx/agents/pkg/logger"
)

// timestampLayout has a fixed width so the TEXT column sorts chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	startup_name TEXT,
	founder_name TEXT,
	stage TEXT,
	problem_solved TEXT,
	product_service TEXT,
	target_market TEXT,
	revenue_model TEXT,
	funding_status TEXT,
	profile_image TEXT,
	last_updated TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chat_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT,
	agent_id TEXT,
	role TEXT,
	content TEXT,
	timestamp TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_history_session_agent
	ON chat_history (session_id, agent_id, timestamp);`

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore takes ownership of db and creates the schema if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Init creates both tables. It is idempotent.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		logx.Error().Err(err).Msg("failed to create sqlite schema")
		return errx.WrapStore(fmt.Errorf("create schema: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, sessionID, agentID, role, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (session_id, agent_id, role, content, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, agentID, role, content.Sanitize(text), s.now().UTC().Format(timestampLayout),
	)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Str("agent_id", agentID).Msg("failed to save message")
		return errx.WrapStore(fmt.Errorf("insert message: %w", err))
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, sessionID, agentID string, limit int) ([]model.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, timestamp FROM chat_history
		 WHERE session_id = ? AND agent_id = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		sessionID, agentID, limit,
	)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Str("agent_id", agentID).Msg("failed to query history")
		return nil, errx.WrapStore(fmt.Errorf("query history: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var turns []model.Turn
	for rows.Next() {
		var role, text, ts sql.NullString
		if err := rows.Scan(&role, &text, &ts); err != nil {
			return nil, errx.WrapStore(fmt.Errorf("scan history row: %w", err))
		}
		turn := model.Turn{Role: role.String, Content: text.String}
		if parsed, err := time.Parse(timestampLayout, ts.String); err == nil {
			turn.Timestamp = parsed
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapStore(err)
	}

	reverse(turns)
	return turns, nil
}

// UpdateProfile writes every column; empty fields become NULL.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, p model.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (
			user_id, startup_name, founder_name, stage, problem_solved,
			product_service, target_market, revenue_model,
			funding_status, profile_image, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			startup_name = excluded.startup_name,
			founder_name = excluded.founder_name,
			stage = excluded.stage,
			problem_solved = excluded.problem_solved,
			product_service = excluded.product_service,
			target_market = excluded.target_market,
			revenue_model = excluded.revenue_model,
			funding_status = excluded.funding_status,
			profile_image = excluded.profile_image,
			last_updated = excluded.last_updated`,
		userID,
		nullable(p.StartupName),
		nullable(p.FounderName),
		nullable(p.Stage),
		nullable(p.ProblemSolved),
		nullable(p.ProductService),
		nullable(p.TargetMarket),
		nullable(p.RevenueModel),
		nullable(p.FundingStatus),
		nullable(p.ProfileImage),
		s.now().UTC().Format(timestampLayout),
	)
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to upsert profile")
		return errx.WrapStore(fmt.Errorf("upsert profile: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	var cols [9]sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT startup_name, founder_name, stage, problem_solved,
			product_service, target_market, revenue_model,
			funding_status, profile_image
		 FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7], &cols[8])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("user_id", userID).Msg("failed to load profile")
		return nil, errx.WrapStore(fmt.Errorf("select profile: %w", err))
	}

	return &model.Profile{
		StartupName:    cols[0].String,
		FounderName:    cols[1].String,
		Stage:          cols[2].String,
		ProblemSolved:  cols[3].String,
		ProductService: cols[4].String,
		TargetMarket:   cols[5].String,
		RevenueModel:   cols[6].String,
		FundingStatus:  cols[7].String,
		ProfileImage:   cols[8].String,
	}, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func reverse(turns []model.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}

var _ model.Store = (*SQLiteStore)(nil)
