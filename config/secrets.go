package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when a secret has no value.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from environment variables. When KEY
// is unset but KEY_FILE names a file, the trimmed file content is used, so
// mounted container secrets work without exporting them.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - operator supplied secret path
		if err != nil {
			return "", fmt.Errorf("read secret %s: %w", key, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// LoadSecretsFromEnv fills credentials from the environment secret store.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}

// LoadSecrets resolves the SQL DSN, Redis password and API keys from store.
// Secrets required by the selected adapter must resolve.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	if dsn, err := store.Get(ctx, "LEADERBOT_SQL_DSN"); err == nil {
		c.Storage.SQL.DSN = dsn
	} else if c.Storage.Adapter == AdapterSQL && c.Storage.SQL.DSN == "" {
		return fmt.Errorf("sql storage: %w", err)
	}
	if pw, err := store.Get(ctx, "LEADERBOT_REDIS_PASSWORD"); err == nil {
		c.Storage.Redis.Password = pw
	}
	if keys, err := store.Get(ctx, "LEADERBOT_SECURITY_API_KEYS"); err == nil {
		c.Security.APIKeys = c.Security.APIKeys[:0]
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Security.APIKeys = append(c.Security.APIKeys, k)
			}
		}
	}
	return nil
}
