package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Store backends.
const (
	StoreInMemory = "inmemory"
	StoreRedis    = "redis"
	StoreSQL      = "sql"
)

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	// Backend is one of "inmemory", "redis", "sql".
	// Default: inmemory
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"enum=inmemory,enum=redis,enum=sql,default=inmemory"`

	Redis RedisConfig `yaml:"redis" json:"redis,omitempty"`
	SQL   SQLConfig   `yaml:"sql" json:"sql,omitempty"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL.
	// Default: redis://localhost:6379/0
	URL string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"default=redis://localhost:6379/0"`

	// KeyPrefix namespaces session keys.
	// Default: chat:session:
	KeyPrefix string `yaml:"key_prefix,omitempty" json:"key_prefix,omitempty" jsonschema:"default=chat:session:"`
}

// SQLConfig configures the SQL store.
type SQLConfig struct {
	// Driver is one of "sqlite", "postgres", "mysql".
	// Default: sqlite
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty" jsonschema:"enum=sqlite,enum=postgres,enum=mysql,default=sqlite"`

	// DSN is the driver-specific data source name. For sqlite it is a
	// file path.
	// Default: .memchat/memchat.db (sqlite only)
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// MaxConns caps open connections.
	// Default: 10 (1 for sqlite)
	MaxConns int `yaml:"max_conns,omitempty" json:"max_conns,omitempty" jsonschema:"minimum=1"`
}

// SetDefaults applies default values to StoreConfig.
func (c *StoreConfig) SetDefaults() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = StoreInMemory
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "chat:session:"
	}
	if c.Backend == StoreSQL {
		c.SQL.SetDefaults()
	}
}

// Validate checks the store configuration.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case StoreInMemory:
		return nil
	case StoreRedis:
		if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
			return fmt.Errorf("redis url must start with redis:// or rediss://, got %q", c.Redis.URL)
		}
		return nil
	case StoreSQL:
		if err := c.SQL.Validate(); err != nil {
			return fmt.Errorf("sql: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid backend %q (valid: inmemory, redis, sql)", c.Backend)
	}
}

// SetDefaults applies default values to SQLConfig.
func (c *SQLConfig) SetDefaults() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Driver == "sqlite" {
		if c.DSN == "" {
			c.DSN = filepath.Join(".memchat", "memchat.db")
		}
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		if c.MaxConns == 0 {
			c.MaxConns = 1
		}
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
}

// Validate checks the SQL configuration.
func (c *SQLConfig) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported driver %q (supported: sqlite, postgres, mysql)", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required for %s", c.Driver)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max_conns must be positive, got %d", c.MaxConns)
	}
	return nil
}

// DriverName returns the database/sql driver name.
func (c *SQLConfig) DriverName() string {
	if c.Driver == "sqlite" {
		return "sqlite3"
	}
	return c.Driver
}
