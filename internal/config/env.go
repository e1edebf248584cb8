package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"bff-gateway/internal/model"
)

// Environment variable names holding the upstream credentials.
const (
	EnvUpstreamBaseURL = "UPSTREAM_BASE_URL"
	EnvUpstreamAPIKey  = "UPSTREAM_API_KEY"
)

// ErrMissingConfig is returned when a required upstream setting resolves empty.
var ErrMissingConfig = errors.New("gateway misconfigured")

// Env looks up a single environment value. Runtime adapters pass one of
// these to the pipeline instead of letting handlers read os.Getenv directly.
type Env interface {
	Lookup(key string) (string, bool)
}

// EnvFunc adapts a plain function to the Env interface.
type EnvFunc func(key string) (string, bool)

// Lookup calls f(key).
func (f EnvFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// ProcessEnv reads the process environment on every lookup.
type ProcessEnv struct{}

// Lookup returns os.LookupEnv(key).
func (ProcessEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv is a fixed set of values, used for config-file fallbacks and tests.
type MapEnv map[string]string

// Lookup returns the value stored under key.
func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// LayeredEnv consults each layer in order and returns the first non-empty value.
type LayeredEnv []Env

// Lookup returns the first non-empty value found across the layers.
func (l LayeredEnv) Lookup(key string) (string, bool) {
	for _, e := range l {
		if v, ok := e.Lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// UpstreamEnv returns the environment used by the streaming server: the
// process environment first, then the [upstream] table of the config file.
func (c *Config) UpstreamEnv() Env {
	fallback := MapEnv{}
	if c.Upstream.BaseURL != "" {
		fallback[EnvUpstreamBaseURL] = c.Upstream.BaseURL
	}
	if c.Upstream.APIKey != "" {
		fallback[EnvUpstreamAPIKey] = c.Upstream.APIKey
	}
	return LayeredEnv{ProcessEnv{}, fallback}
}

// ResolveUpstream builds the per-invocation Configuration from env. It never
// fails; call ValidateUpstream before using the result.
func ResolveUpstream(env Env) model.Configuration {
	baseURL, _ := env.Lookup(EnvUpstreamBaseURL)
	apiKey, _ := env.Lookup(EnvUpstreamAPIKey)
	return model.Configuration{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// ValidateUpstream reports which required upstream setting is missing.
func ValidateUpstream(cfg model.Configuration) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingConfig, EnvUpstreamBaseURL)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingConfig, EnvUpstreamAPIKey)
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}
