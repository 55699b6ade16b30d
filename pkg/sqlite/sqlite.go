package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Config locates the single-file database shared by every agent and the dashboard.
type Config struct {
	Path        string `envconfig:"SQLITE_PATH" default:"startupx_memory.db"`
	BusyTimeout int    `envconfig:"SQLITE_BUSY_TIMEOUT_MS" default:"5000"`
}

// DSN carries the pragmas so every pooled connection gets them. Several
// processes write the same file, hence WAL and a busy timeout.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", c.Path, c.BusyTimeout)
}

// New opens the database, creating its directory when needed.
func (c *Config) New() (*sql.DB, error) {
	if dir := filepath.Dir(c.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}
