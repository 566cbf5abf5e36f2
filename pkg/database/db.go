package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDSN is a process-wide in-memory database shared by every
// connection of the pool.
const DefaultDSN = "file:engram?mode=memory&cache=shared"

type Config struct {
	DSN string
}

func DefaultConfig() Config {
	if p := os.Getenv("ENGRAM_DB_DSN"); p != "" {
		return Config{DSN: p}
	}
	return Config{DSN: DefaultDSN}
}

// MemoryConfig names a private in-memory database, for tests and for
// running several indexes side by side.
func MemoryConfig(name string) Config {
	return Config{DSN: "file:" + name + "?mode=memory&cache=shared"}
}

func (c Config) inMemory() bool {
	return strings.Contains(c.DSN, "mode=memory") || strings.Contains(c.DSN, ":memory:")
}

func Open(cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		cfg = DefaultConfig()
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if cfg.inMemory() {
		// shared-cache tables lock per connection; one connection also
		// keeps the database alive while the pool is idle
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}
