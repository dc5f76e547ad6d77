package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrConfig = errors.New("invalid configuration")

var supportedDrivers = []string{"postgres", "sqlite3", "mysql"}

type DBConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
	MaxRetries      int
	AutoMigrate     bool
}

type HTTPConfig struct {
	Addr           string
	RequestTimeout time.Duration
}

type Config struct {
	DB     DBConfig
	HTTP   HTTPConfig
	LogDir string
}

// LoadConfig reads config.env when present, then the process environment.
func LoadConfig(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: load %s: %v", ErrConfig, envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "2h")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_QUERY_TIMEOUT", "5s")
	v.SetDefault("DB_MAX_RETRIES", 3)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("HTTP_ADDR", "127.0.0.1:3693")
	v.SetDefault("HTTP_REQUEST_TIMEOUT", "15s")
	v.SetDefault("LOG_DIR", "logs")

	cfg := &Config{
		DB: DBConfig{
			Driver:       v.GetString("DB_DRIVER"),
			URL:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxRetries:   v.GetInt("DB_MAX_RETRIES"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("HTTP_ADDR"),
		},
		LogDir: v.GetString("LOG_DIR"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", &cfg.DB.ConnMaxLifetime},
		{"DB_CONNECT_TIMEOUT", &cfg.DB.ConnectTimeout},
		{"DB_QUERY_TIMEOUT", &cfg.DB.QueryTimeout},
		{"HTTP_REQUEST_TIMEOUT", &cfg.HTTP.RequestTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s: %v", ErrConfig, d.key, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.DB.pinInMemoryPool()
	return cfg, nil
}

// InMemorySQLite reports a sqlite URL whose database lives and dies with a single connection.
func (c DBConfig) InMemorySQLite() bool {
	if c.Driver != "sqlite3" {
		return false
	}
	return c.URL == ":memory:" ||
		strings.HasPrefix(c.URL, "file::memory:") ||
		strings.Contains(c.URL, "mode=memory")
}

// pinInMemoryPool keeps an in-memory sqlite database on one connection that is never recycled.
func (c *DBConfig) pinInMemoryPool() {
	if !c.InMemorySQLite() {
		return
	}
	c.MaxOpenConns = 1
	c.MaxIdleConns = 1
	c.ConnMaxLifetime = 0
}

// PoolLimits returns the pool settings NewDatabase applies, pinned for in-memory sqlite.
func (c DBConfig) PoolLimits() (maxOpen, maxIdle int, lifetime time.Duration) {
	pinned := c
	pinned.pinInMemoryPool()
	return pinned.MaxOpenConns, pinned.MaxIdleConns, pinned.ConnMaxLifetime
}

func (c *Config) Validate() error {
	switch {
	case c.DB.URL == "":
		return fmt.Errorf("%w: DATABASE_URL must be set", ErrConfig)
	case !slices.Contains(supportedDrivers, c.DB.Driver):
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", ErrConfig, c.DB.Driver)
	case c.DB.MaxOpenConns <= 0:
		return fmt.Errorf("%w: DB_MAX_OPEN_CONNS must be positive", ErrConfig)
	case c.DB.MaxIdleConns < 0:
		return fmt.Errorf("%w: DB_MAX_IDLE_CONNS must not be negative", ErrConfig)
	case c.DB.MaxRetries <= 0:
		return fmt.Errorf("%w: DB_MAX_RETRIES must be positive", ErrConfig)
	case c.DB.ConnectTimeout <= 0, c.DB.QueryTimeout <= 0, c.HTTP.RequestTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrConfig)
	case c.HTTP.Addr == "":
		return fmt.Errorf("%w: HTTP_ADDR must be set", ErrConfig)
	}
	return nil
}
