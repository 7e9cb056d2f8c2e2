// Package config loads server configuration from a YAML file, an optional
// .env file and environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"codetracker/pkg/logger"
)

// Config holds all server configuration
type Config struct {
	Env        string           `yaml:"env"`
	Server     ServerConfig     `yaml:"server"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Logging    logger.Config    `yaml:"logging"`
	Fetchers   FetchersConfig   `yaml:"fetchers"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig contains REST API settings
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	GinMode        string   `yaml:"gin_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GRPCConfig contains the ops health endpoint settings
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DatabaseConfig selects and configures the statistics store
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // postgres or sqlite
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RedisConfig is used by the redis scheduler backend
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig validates bearer tokens issued by the identity service
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// FetchersConfig tunes the platform fetchers
type FetchersConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	UserAgent         string        `yaml:"user_agent"`
	LeetCodeAlfaURL   string        `yaml:"leetcode_alfa_url"`
	LeetCodeGraphQL   string        `yaml:"leetcode_graphql_url"`
	CodeforcesAPI     string        `yaml:"codeforces_api_url"`
	CodeChefURL       string        `yaml:"codechef_url"`
	Placeholders      bool          `yaml:"placeholders"`
}

// AggregatorConfig controls fan-out across platforms
type AggregatorConfig struct {
	Parallel    bool `yaml:"parallel"`
	MaxParallel int  `yaml:"max_parallel"`
}

// SchedulerConfig controls background refreshes
type SchedulerConfig struct {
	Backend       string        `yaml:"backend"` // local or redis
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	QueueName     string        `yaml:"queue_name"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepBatch    int           `yaml:"sweep_batch"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			GinMode:        "release",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    50051,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "codetracker",
			Password:        "codetracker_dev_password",
			Database:        "codetracker",
			SSLMode:         "disable",
			SQLitePath:      "codetracker.db",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         5 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Fetchers: FetchersConfig{
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			UserAgent:         "CodeTracker/1.0",
			LeetCodeAlfaURL:   "https://alfa-leetcode-api.onrender.com",
			LeetCodeGraphQL:   "https://leetcode.com/graphql",
			CodeforcesAPI:     "https://codeforces.com/api",
			CodeChefURL:       "https://www.codechef.com",
			Placeholders:      true,
		},
		Aggregator: AggregatorConfig{
			Parallel:    false,
			MaxParallel: 4,
		},
		Scheduler: SchedulerConfig{
			Backend:       "local",
			Workers:       4,
			QueueSize:     128,
			QueueName:     "codetracker:refresh",
			StaleAfter:    12 * time.Hour,
			SweepInterval: 30 * time.Minute,
			SweepBatch:    100,
		},
	}
}

// Load reads configuration from path (missing file falls back to defaults),
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults only
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.Server.Host, "TRACKER_HTTP_HOST")
	setInt(&cfg.Server.Port, "TRACKER_HTTP_PORT")
	setString(&cfg.Server.GinMode, "GIN_MODE")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.GRPC.Enabled, "TRACKER_GRPC_ENABLED")
	setInt(&cfg.GRPC.Port, "TRACKER_GRPC_PORT")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.Database.SQLitePath, "DB_SQLITE_PATH")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Output, "LOG_OUTPUT")

	setDuration(&cfg.Fetchers.Timeout, "FETCH_TIMEOUT")
	setBool(&cfg.Fetchers.Placeholders, "FETCH_PLACEHOLDERS")
	setBool(&cfg.Aggregator.Parallel, "AGGREGATOR_PARALLEL")
	setString(&cfg.Scheduler.Backend, "SCHEDULER_BACKEND")
	setInt(&cfg.Scheduler.Workers, "SCHEDULER_WORKERS")
	setDuration(&cfg.Scheduler.StaleAfter, "SCHEDULER_STALE_AFTER")
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Fetchers.Timeout < time.Second || c.Fetchers.Timeout > time.Minute {
		return fmt.Errorf("fetchers.timeout must be between 1s and 60s, got %s", c.Fetchers.Timeout)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Scheduler.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown scheduler backend %q", c.Scheduler.Backend)
	}
	if c.Scheduler.Workers < 1 {
		c.Scheduler.Workers = 1
	}
	if c.Aggregator.MaxParallel < 1 {
		c.Aggregator.MaxParallel = 1
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
