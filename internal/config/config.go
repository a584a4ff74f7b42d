// Package config reads process settings from the environment, after loading
// a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"negotiation-tutor/internal/platform/envutil"
	"negotiation-tutor/internal/service/agent"
)

// Names of the per-role API keys.
const (
	GeneratorKey    = "DEEPSEEK_GENERATOR_KEY"
	CriticKey       = "DEEPSEEK_CRITIC_KEY"
	CollaboratorKey = "DEEPSEEK_COLLAB_KEY"
)

// Config is everything the server needs at startup. API keys are not part
// of it; they are read on demand through a KeySource.
type Config struct {
	AppName string
	Port    string
	LogMode string
	LogSalt string
	LLM     agent.Config
}

// Load reads .env (if any) and the environment. A missing .env is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}
	timeout, err := envutil.Int("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg := Config{
		AppName: envutil.String("APP_NAME", "Negotiation-Tutor"),
		Port:    envutil.String("PORT", "3000"),
		LogMode: envutil.String("LOG_MODE", "dev"),
		LogSalt: envutil.String("LOG_HASH_SALT", ""),
		LLM: agent.Config{
			BaseURL:       envutil.String("LLM_BASE_URL", agent.DefaultBaseURL),
			Model:         envutil.String("LLM_MODEL", agent.DefaultModel),
			AzureEndpoint: envutil.String("AZURE_OPENAI_ENDPOINT", ""),
			Deployment:    envutil.String("AZURE_OPENAI_DEPLOYMENT", ""),
			Timeout:       time.Duration(timeout) * time.Second,
		},
	}
	if cfg.LLM.Timeout <= 0 {
		return Config{}, fmt.Errorf("config: LLM_TIMEOUT_SECONDS must be positive")
	}
	return cfg, nil
}

// MissingKeyError reports an unset API key. It is a deployment problem and
// is never retried.
type MissingKeyError struct {
	Name string
}

func (e *MissingKeyError) Error() string {
	return "missing required API key: " + e.Name
}

// KeySource resolves API keys by environment variable name.
type KeySource interface {
	RequireKey(name string) (string, error)
}

// EnvKeys reads keys from the process environment on every call, so a
// rotated key is picked up without a restart.
type EnvKeys struct{}

func (EnvKeys) RequireKey(name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, nil
	}
	return "", &MissingKeyError{Name: name}
}

// StaticKeys serves keys from a fixed map.
type StaticKeys map[string]string

func (s StaticKeys) RequireKey(name string) (string, error) {
	if v := strings.TrimSpace(s[name]); v != "" {
		return v, nil
	}
	return "", &MissingKeyError{Name: name}
}
