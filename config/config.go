// Package config loads rrouter's YAML configuration: operation to policy
// bindings, the generic error message, logging and leaf tuning.
//
//	error_message: request failure
//	logging:
//	  level: info
//	  format: text
//	pool:
//	  size: 8
//	operations:
//	  login:
//	    policy: race_local_and_remote
//	    timeout: 2s
//	    rate_limit: 5
//	    burst: 2
//	    breaker:
//	      max_failures: 3
//	      open_timeout: 30s
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/rrouter/logging"
	"github.com/hupe1980/rrouter/policy"
	"gopkg.in/yaml.v3"
)

// ErrUnknownOperation is returned for operations that are not configured.
var ErrUnknownOperation = errors.New("config: unknown operation")

// DefaultErrorMessage mirrors the proxy's generic failure message.
const DefaultErrorMessage = "request failure"

type Config struct {
	ErrorMessage string                `yaml:"error_message"`
	Logging      Logging               `yaml:"logging"`
	Pool         Pool                  `yaml:"pool"`
	Operations   map[string]*Operation `yaml:"operations"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Pool sizes the shared leaf worker pool. Zero disables the pool.
type Pool struct {
	Size int `yaml:"size"`
}

type Operation struct {
	Policy    string        `yaml:"policy"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // loads per second, 0 = unlimited
	Burst     int           `yaml:"burst"`
	Breaker   *Breaker      `yaml:"breaker"`
}

// Breaker configures a circuit breaker in front of an operation's leaves.
type Breaker struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// DefaultConfig returns a configuration with no operations.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = DefaultErrorMessage
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Operations == nil {
		cfg.Operations = map[string]*Operation{}
	}

	for _, op := range cfg.Operations {
		if op == nil {
			continue
		}
		if op.RateLimit > 0 && op.Burst == 0 {
			op.Burst = 1
		}
		if op.Breaker != nil {
			if op.Breaker.MaxFailures == 0 {
				op.Breaker.MaxFailures = 5
			}
			if op.Breaker.OpenTimeout == 0 {
				op.Breaker.OpenTimeout = 60 * time.Second
			}
		}
	}
}

// Operation returns the named operation.
func (c *Config) Operation(name string) (*Operation, error) {
	op, ok := c.Operations[name]
	if !ok || op == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownOperation, name)
	}

	return op, nil
}

// Kind returns the policy kind bound to operation.
func (c *Config) Kind(operation string) (policy.Kind, error) {
	op, err := c.Operation(operation)
	if err != nil {
		return 0, err
	}

	return policy.ParseKind(op.Policy)
}

// NewLogger builds a logger from the logging section.
func (c *Config) NewLogger(out io.Writer) (*logging.RouterLogger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: c.Logging.Format,
		Output: out,
	}), nil
}
