package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
env: dev
environments:
  dev:
    base_url: https://reqres.in/api
  staging:
    base_url: https://staging.reqres.in/api
default_headers:
  Content-Type: application/json
  Accept: application/json
  x-api-key: reqres-free-v1
timeout_seconds: 10
retry_count: 3
retry_delay: 2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Len(t, cfg.Environments, 2)
	require.Equal(t, 3, cfg.RetryCount)
	require.Equal(t, 2*time.Second, cfg.RetryInterval())
	require.Equal(t, 10*time.Second, cfg.Timeout())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeConfig(t, "env: [unclosed"))
	require.ErrorIs(t, err, ErrConfigMalformed)
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "no env",
			content: `
environments:
  dev:
    base_url: https://example.com
default_headers: {}
timeout_seconds: 5
`,
		},
		{
			name: "no environments",
			content: `
env: dev
default_headers: {}
timeout_seconds: 5
`,
		},
		{
			name: "no default_headers",
			content: `
env: dev
environments:
  dev:
    base_url: https://example.com
timeout_seconds: 5
`,
		},
		{
			name: "no timeout_seconds",
			content: `
env: dev
environments:
  dev:
    base_url: https://example.com
default_headers: {}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.ErrorIs(t, err, ErrConfigIncomplete)
		})
	}
}

func TestLoad_RetryDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
env: dev
environments:
  dev:
    base_url: https://example.com
default_headers: {}
timeout_seconds: 5
`))
	require.NoError(t, err)

	// One attempt, one second between attempts.
	require.Equal(t, 1, cfg.RetryCount)
	require.Equal(t, time.Second, cfg.RetryInterval())
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv(EnvVarName, "staging")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Env)

	url, err := cfg.ResolveBaseURL()
	require.NoError(t, err)
	require.Equal(t, "https://staging.reqres.in/api", url)
}

func TestResolveHeaders_AllowListFilter(t *testing.T) {
	cfg := &Config{
		DefaultHeaders: map[string]string{
			"Content-Type":  "application/json",
			"Accept":        "application/json",
			"x-api-key":     "secret",
			"Authorization": "Bearer leaked",
			"X-Trace-Id":    "abc123",
		},
	}

	headers := cfg.ResolveHeaders()

	require.Equal(t, map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"x-api-key":    "secret",
	}, headers)
	require.NotContains(t, headers, "Authorization")
	require.NotContains(t, headers, "X-Trace-Id")
}

func TestResolveHeaders_Empty(t *testing.T) {
	cfg := &Config{DefaultHeaders: map[string]string{}}
	require.Empty(t, cfg.ResolveHeaders())
}

func TestResolveBaseURL(t *testing.T) {
	cfg := &Config{
		Env: "dev",
		Environments: map[string]Environment{
			"dev": {BaseURL: "https://example.com/api"},
			"qa":  {},
		},
	}

	url, err := cfg.ResolveBaseURL()
	require.NoError(t, err)
	require.Equal(t, "https://example.com/api", url)

	cfg.Env = "prod"
	_, err = cfg.ResolveBaseURL()
	require.ErrorIs(t, err, ErrEnvironmentNotConfigured)

	cfg.Env = "qa"
	_, err = cfg.ResolveBaseURL()
	require.ErrorIs(t, err, ErrBaseURLMissing)
}
