package dashboard

import "time"

// syncMargin keeps the dashboard waiting longer than an agent's sync wait,
// so a slow agent surfaces as its own 504.
const syncMargin = 5 * time.Second

type Config struct {
	Addr         string        `envconfig:"DASHBOARD_ADDR" default:":8081"`
	QueryTimeout time.Duration `envconfig:"DASHBOARD_QUERY_TIMEOUT" default:"65s"`
	SyncTimeout  time.Duration `envconfig:"AGENT_SYNC_TIMEOUT" default:"60s"`
	ProbeTimeout time.Duration `envconfig:"DASHBOARD_PROBE_TIMEOUT" default:"500ms"`
	// RateLimit is queries per second across all callers; zero disables limiting.
	RateLimit float64 `envconfig:"DASHBOARD_RATE_LIMIT" default:"2"`
	RateBurst int     `envconfig:"DASHBOARD_RATE_BURST" default:"5"`
	AgentHost string  `envconfig:"AGENT_HOST" default:"localhost"`
	APIKey    string  `envconfig:"AGENT_API_KEY"`
	UserID    string  `envconfig:"PROFILE_USER_ID" default:"default_user"`
}

// clientTimeout is QueryTimeout, raised to SyncTimeout plus syncMargin when
// it would expire before the agent gives up.
func (c Config) clientTimeout() time.Duration {
	floor := c.SyncTimeout + syncMargin
	if c.QueryTimeout < floor {
		return floor
	}
	return c.QueryTimeout
}
