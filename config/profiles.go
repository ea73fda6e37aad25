package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the defaults for a named deployment profile, overlaid
// with environment variables and validated.
func LoadProfile(name string) (*Config, error) {
	cfg, err := profile(name)
	if err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func profile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Storage.Adapter = AdapterMemory
		cfg.Logging.Level = "warn"
		cfg.Storage.OpTimeout = time.Second
		cfg.Server.ShutdownTimeout = 5 * time.Second
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Metrics.Enabled = true
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Storage.SQLite.Path = "/var/lib/leaderbot/leaderboard.db"
		cfg.Server.CORSOrigin = ""
		cfg.Metrics.Enabled = true
		cfg.Security.EnableRateLimit = true
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}
