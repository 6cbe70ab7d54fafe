package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/rrouter/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rrouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, `
error_message: login failed
logging:
  level: debug
  format: json
pool:
  size: 4
operations:
  login:
    policy: race_local_and_remote
    timeout: 2s
    rate_limit: 5
    breaker:
      max_failures: 3
  profile:
    policy: fallback-local-then-remote
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "login failed", cfg.ErrorMessage)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Pool.Size)

	login, err := cfg.Operation("login")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, login.Timeout)
	assert.InDelta(t, 5.0, login.RateLimit, 0)
	assert.Equal(t, 1, login.Burst, "burst defaults to one when rate limited")
	require.NotNil(t, login.Breaker)
	assert.Equal(t, uint32(3), login.Breaker.MaxFailures)
	assert.Equal(t, 60*time.Second, login.Breaker.OpenTimeout)

	kind, err := cfg.Kind("login")
	require.NoError(t, err)
	assert.Equal(t, policy.RaceLocalAndRemote, kind)

	kind, err = cfg.Kind("profile")
	require.NoError(t, err)
	assert.Equal(t, policy.FallbackLocalThenRemote, kind)
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(`operations: {}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultErrorMessage, cfg.ErrorMessage)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Zero(t, cfg.Pool.Size)

	assert.Equal(t, cfg, DefaultConfig())
}

func TestUnknownOperation(t *testing.T) {
	_, err := DefaultConfig().Kind("login")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing policy", "operations:\n  login: {timeout: 1s}\n", `operation "login" missing policy`},
		{"unknown policy", "operations:\n  login: {policy: sometimes}\n", `operation "login": policy: unknown kind`},
		{"empty operation", "operations:\n  login:\n", `operation "login" is empty`},
		{"negative timeout", "operations:\n  login: {policy: only_local, timeout: -1s}\n", "timeout must not be negative"},
		{"negative rate", "operations:\n  login: {policy: only_local, rate_limit: -1}\n", "rate_limit must not be negative"},
		{"negative burst", "operations:\n  login: {policy: only_local, burst: -2}\n", "burst must not be negative"},
		{"negative pool", "pool: {size: -1}\n", "pool.size must not be negative"},
		{"bad level", "logging: {level: loud}\n", `unknown level "loud"`},
		{"bad format", "logging: {format: xml}\n", `unknown logging format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUnknownPolicyWrapsSentinel(t *testing.T) {
	_, err := Parse([]byte("operations:\n  login: {policy: sometimes}\n"))
	assert.ErrorIs(t, err, policy.ErrUnknownKind)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("operations: ["))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg, err := Parse([]byte("logging: {level: warn, format: json}\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	l, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
