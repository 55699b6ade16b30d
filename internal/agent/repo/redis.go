package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/startupx/agents/internal/agent/content"
	"github.com/startupx/agents/internal/agent/model"
	errx "github.com/startupx/agents/internal/core/error"
	logx "github.com/startupx/agents/pkg/logger"
)

// RedisStore keeps the same history and profile data as SQLiteStore for
// deployments where agents run on different hosts.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisStore) historyKey(sessionID, agentID string) string {
	return fmt.Sprintf("history:%s:%s", sessionID, agentID)
}

func (r *RedisStore) profileKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

func (r *RedisStore) SaveMessage(ctx context.Context, sessionID, agentID, role, text string) error {
	b, err := json.Marshal(model.Turn{Role: role, Content: content.Sanitize(text), Timestamp: r.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := r.historyKey(sessionID, agentID)

	// append message
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on history key")
		}
	}
	return nil
}

func (r *RedisStore) History(ctx context.Context, sessionID, agentID string, limit int) ([]model.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	key := r.historyKey(sessionID, agentID)

	rows, err := r.rdb.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load history from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]model.Turn, 0, len(rows))
	for i, s := range rows {
		var t model.Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			logx.Error().Err(err).Str("key", key).Int("index", i).Msg("failed to unmarshal turn")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisStore) UpdateProfile(ctx context.Context, userID string, p model.Profile) error {
	key := r.profileKey(userID)
	fields := map[string]any{
		"startup_name":    p.StartupName,
		"founder_name":    p.FounderName,
		"stage":           p.Stage,
		"problem_solved":  p.ProblemSolved,
		"product_service": p.ProductService,
		"target_market":   p.TargetMarket,
		"revenue_model":   p.RevenueModel,
		"funding_status":  p.FundingStatus,
		"profile_image":   p.ProfileImage,
		"last_updated":    r.now().UTC().Format(timestampLayout),
	}
	if err := r.rdb.HSet(ctx, key, fields).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write profile to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisStore) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	key := r.profileKey(userID)
	m, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to read profile from redis")
		return nil, errx.WrapRedis(err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return &model.Profile{
		StartupName:    m["startup_name"],
		FounderName:    m["founder_name"],
		Stage:          m["stage"],
		ProblemSolved:  m["problem_solved"],
		ProductService: m["product_service"],
		TargetMarket:   m["target_market"],
		RevenueModel:   m["revenue_model"],
		FundingStatus:  m["funding_status"],
		ProfileImage:   m["profile_image"],
	}, nil
}

// Close is a no-op; the client is owned by whoever created it.
func (r *RedisStore) Close() error {
	return nil
}

var _ model.Store = (*RedisStore)(nil)
