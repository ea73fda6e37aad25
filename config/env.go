package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// loadFromEnv overlays LEADERBOT_* environment variables onto cfg. Unset
// variables leave the current value alone; nested sections are walked.
func loadFromEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
