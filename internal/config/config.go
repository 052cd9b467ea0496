// Package config loads and resolves the environment-scoped suite
// configuration: base URLs per environment, default headers, timeouts
// and the retry policy.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for configuration loading and resolution.
var (
	// ErrConfigNotFound indicates no configuration file exists at the given path.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrConfigMalformed indicates the file could not be parsed as a YAML mapping.
	ErrConfigMalformed = errors.New("config file malformed")
	// ErrConfigIncomplete indicates a required top-level key is missing.
	ErrConfigIncomplete = errors.New("config incomplete")
	// ErrEnvironmentNotConfigured indicates env names an unknown environment.
	ErrEnvironmentNotConfigured = errors.New("environment not configured")
	// ErrBaseURLMissing indicates the selected environment has no base_url.
	ErrBaseURLMissing = errors.New("base_url missing for environment")
)

// EnvVarName overrides the selected environment when set, without
// editing the config file.
const EnvVarName = "TEST_ENV"

// DefaultPath is where the runner looks for configuration unless told
// otherwise.
const DefaultPath = "config/config.yaml"

// allowedHeaders is the closed set of header names the suite will ever
// send. Anything else configured under default_headers is dropped on
// purpose so a shared config file cannot leak unexpected defaults into
// requests.
var allowedHeaders = map[string]bool{
	"Content-Type": true,
	"Accept":       true,
	"X-Api-Key":    true,
}

// Environment is a single named deployment target.
type Environment struct {
	BaseURL string `yaml:"base_url"`
}

// Config is the immutable, fully loaded suite configuration.
type Config struct {
	Env            string                 `yaml:"env"`
	Environments   map[string]Environment `yaml:"environments"`
	DefaultHeaders map[string]string      `yaml:"default_headers"`
	TimeoutSeconds float64                `yaml:"timeout_seconds"`
	RetryCount     int                    `yaml:"retry_count"`
	RetryDelay     float64                `yaml:"retry_delay"`
}

// rawConfig mirrors Config but keeps optional fields as pointers so a
// missing key can be told apart from an explicit zero.
type rawConfig struct {
	Env            *string                `yaml:"env"`
	Environments   map[string]Environment `yaml:"environments"`
	DefaultHeaders map[string]string      `yaml:"default_headers"`
	TimeoutSeconds *float64               `yaml:"timeout_seconds"`
	RetryCount     *int                   `yaml:"retry_count"`
	RetryDelay     *float64               `yaml:"retry_delay"`
}

// Load reads and validates the configuration at path.
//
// It fails with ErrConfigNotFound when the file does not exist,
// ErrConfigMalformed when it is not valid YAML, and ErrConfigIncomplete
// when any of the required keys (env, environments, default_headers,
// timeout_seconds) is absent. retry_count and retry_delay are optional
// and default to 1 attempt / 1 second.
//
// The TEST_ENV environment variable, when set, overrides the env key.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}

	var missing []string
	if raw.Env == nil {
		missing = append(missing, "env")
	}
	if raw.Environments == nil {
		missing = append(missing, "environments")
	}
	if raw.DefaultHeaders == nil {
		missing = append(missing, "default_headers")
	}
	if raw.TimeoutSeconds == nil {
		missing = append(missing, "timeout_seconds")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing keys %v", ErrConfigIncomplete, missing)
	}

	cfg := &Config{
		Env:            *raw.Env,
		Environments:   raw.Environments,
		DefaultHeaders: raw.DefaultHeaders,
		TimeoutSeconds: *raw.TimeoutSeconds,
		RetryCount:     1,
		RetryDelay:     1,
	}
	if raw.RetryCount != nil {
		cfg.RetryCount = *raw.RetryCount
	}
	if raw.RetryDelay != nil {
		cfg.RetryDelay = *raw.RetryDelay
	}

	if env := os.Getenv(EnvVarName); env != "" {
		cfg.Env = env
	}

	return cfg, nil
}

// ResolveHeaders returns the configured default headers filtered
// against the allow-list {Content-Type, Accept, x-api-key}. Header
// names are matched case-insensitively and returned with their
// configured spelling. Unrecognized names are dropped silently; that
// is documented behavior, not a bug.
func (c *Config) ResolveHeaders() map[string]string {
	headers := make(map[string]string, len(c.DefaultHeaders))
	for name, value := range c.DefaultHeaders {
		if allowedHeaders[http.CanonicalHeaderKey(name)] {
			headers[name] = value
		}
	}
	return headers
}

// ResolveBaseURL returns the base URL of the selected environment.
// It fails with ErrEnvironmentNotConfigured when env does not name a
// configured environment and ErrBaseURLMissing when the entry has an
// empty base_url.
func (c *Config) ResolveBaseURL() (string, error) {
	env, ok := c.Environments[c.Env]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrEnvironmentNotConfigured, c.Env)
	}
	if env.BaseURL == "" {
		return "", fmt.Errorf("%w: %q", ErrBaseURLMissing, c.Env)
	}
	return env.BaseURL, nil
}

// Timeout returns the per-attempt request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// RetryInterval returns the fixed delay between retry attempts.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryDelay * float64(time.Second))
}
