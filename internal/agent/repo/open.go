package repo

import (
	"context"
	"fmt"

	"github.com/startupx/agents/internal/agent/model"
	pkgredis "github.com/startupx/agents/pkg/redis"
	"github.com/startupx/agents/pkg/sqlite"
)

// Config selects and configures the backing store.
type Config struct {
	Store        model.StoreConfig
	SQLite       sqlite.Config
	Redis        pkgredis.Config
	Conversation model.ConversationConfig
}

// Open returns the store selected by STORE_BACKEND.
func Open(ctx context.Context, cfg Config) (model.Store, error) {
	switch cfg.Store.Backend {
	case "", model.StoreSQLite:
		db, err := cfg.SQLite.New()
		if err != nil {
			return nil, err
		}
		s, err := NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	case model.StoreRedis:
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &ownedRedisStore{RedisStore: NewRedisStore(rdb, cfg.Conversation.TTL), close: rdb.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// ownedRedisStore closes the client it was opened with.
type ownedRedisStore struct {
	*RedisStore
	close func() error
}

func (o *ownedRedisStore) Close() error {
	return o.close()
}
