package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leaderbot/adapters/redis"
	"leaderbot/adapters/sqlx"
	"leaderbot/cooldown"
	"leaderbot/core"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage adapter names.
const (
	AdapterMemory = "memory"
	AdapterSQLite = "sqlite"
	AdapterRedis  = "redis"
	AdapterSQL    = "sql"
	AdapterFile   = "file"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" yaml:"environment" env:"LEADERBOT_ENV"`
	Profile     string      `json:"profile" yaml:"profile" env:"LEADERBOT_PROFILE"`

	Server       ServerConfig       `json:"server" yaml:"server"`
	Storage      StorageConfig      `json:"storage" yaml:"storage"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Metrics      MetricsConfig      `json:"metrics" yaml:"metrics"`
	Security     SecurityConfig     `json:"security" yaml:"security"`
	Bot          BotConfig          `json:"bot" yaml:"bot"`
	Integrations IntegrationsConfig `json:"integrations" yaml:"integrations"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" yaml:"address" env:"LEADERBOT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" yaml:"path_prefix" env:"LEADERBOT_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" yaml:"cors_origin" env:"LEADERBOT_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"LEADERBOT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"LEADERBOT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"LEADERBOT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"LEADERBOT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"LEADERBOT_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string `json:"adapter" yaml:"adapter" env:"LEADERBOT_STORAGE_ADAPTER"`
	// OpTimeout bounds every individual storage call.
	OpTimeout time.Duration `json:"op_timeout" yaml:"op_timeout" env:"LEADERBOT_STORAGE_OP_TIMEOUT"`
	SQLite    SQLiteConfig  `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	Redis     redis.Config  `json:"redis,omitempty" yaml:"redis,omitempty"`
	SQL       sqlx.Config   `json:"sql,omitempty" yaml:"sql,omitempty"`
	File      FileConfig    `json:"file,omitempty" yaml:"file,omitempty"`
}

// SQLiteConfig holds the embedded database configuration
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path" env:"LEADERBOT_STORAGE_SQLITE_PATH"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" yaml:"path" env:"LEADERBOT_STORAGE_FILE_PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" yaml:"level" env:"LEADERBOT_LOG_LEVEL"`
	Format     string            `json:"format" yaml:"format" env:"LEADERBOT_LOG_FORMAT"`
	Output     string            `json:"output" yaml:"output" env:"LEADERBOT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" env:"LEADERBOT_LOG_ATTRIBUTES"`
}

// MetricsConfig holds metrics and monitoring configuration
type MetricsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" env:"LEADERBOT_METRICS_ENABLED"`
	Address       string `json:"address" yaml:"address" env:"LEADERBOT_METRICS_ADDR"`
	Path          string `json:"path" yaml:"path" env:"LEADERBOT_METRICS_PATH"`
	CollectSystem bool   `json:"collect_system" yaml:"collect_system" env:"LEADERBOT_METRICS_COLLECT_SYSTEM"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" yaml:"enable_rate_limit" env:"LEADERBOT_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" yaml:"api_keys,omitempty" env:"LEADERBOT_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" env:"LEADERBOT_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" yaml:"burst_size" env:"LEADERBOT_SECURITY_RATE_LIMIT_BURST"`
}

// BotConfig holds the leaderboard command settings
type BotConfig struct {
	// RequiredRoleID is the role allowed to award points and reset the board.
	RequiredRoleID  core.RoleID   `json:"required_role_id" yaml:"required_role_id" env:"LEADERBOT_BOT_REQUIRED_ROLE_ID"`
	CommandPrefix   string        `json:"command_prefix" yaml:"command_prefix" env:"LEADERBOT_BOT_COMMAND_PREFIX"`
	CooldownWindow  time.Duration `json:"cooldown_window" yaml:"cooldown_window" env:"LEADERBOT_BOT_COOLDOWN_WINDOW"`
	CooldownMaxUses int           `json:"cooldown_max_uses" yaml:"cooldown_max_uses" env:"LEADERBOT_BOT_COOLDOWN_MAX_USES"`
}

// IntegrationsConfig holds outbound integrations
type IntegrationsConfig struct {
	WebhookURLs    []string      `json:"webhook_urls,omitempty" yaml:"webhook_urls,omitempty" env:"LEADERBOT_WEBHOOK_URLS"`
	WebhookTimeout time.Duration `json:"webhook_timeout" yaml:"webhook_timeout" env:"LEADERBOT_WEBHOOK_TIMEOUT"`
}

// Load loads configuration from environment variables and validates it.
// LEADERBOT_CONFIG_FILE, when set, names a file loaded before the environment.
func Load() (*Config, error) {
	if path := os.Getenv("LEADERBOT_CONFIG_FILE"); path != "" {
		return LoadFromFile(path)
	}

	cfg := DefaultConfig()

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var configExtensions = []string{".json", ".yaml", ".yml"}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	supported := false
	for _, e := range configExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("config file must have one of the extensions %s", strings.Join(configExtensions, ", "))
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := decodeConfig(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter:   AdapterSQLite,
			OpTimeout: 5 * time.Second,
			SQLite: SQLiteConfig{
				Path: "./data/leaderboard.db",
			},
			Redis: redis.DefaultConfig(),
			SQL:   sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/leaderboard.json",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			Address:       ":9090",
			Path:          "/metrics",
			CollectSystem: true,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
			APIKeys: []string{},
		},
		Bot: BotConfig{
			CommandPrefix:   "=",
			CooldownWindow:  cooldown.DefaultWindow,
			CooldownMaxUses: cooldown.DefaultMaxUses,
		},
		Integrations: IntegrationsConfig{
			WebhookTimeout: 2 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	// Validate environment
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	sections := []struct {
		name string
		err  error
	}{
		{"server", c.Server.Validate()},
		{"storage", c.Storage.Validate()},
		{"logging", c.Logging.Validate()},
		{"metrics", c.Metrics.Validate()},
		{"security", c.Security.Validate()},
		{"bot", c.Bot.Validate()},
		{"integrations", c.Integrations.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", s.name, s.err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	// Redact sensitive information
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
