package config

import (
	"fmt"

	"github.com/hupe1980/rrouter/logging"
	"github.com/hupe1980/rrouter/policy"
)

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Logging.Format {
	case "json", "text":
		// valid
	default:
		return fmt.Errorf("config: unknown logging format %q", c.Logging.Format)
	}

	if c.Pool.Size < 0 {
		return fmt.Errorf("config: pool.size must not be negative")
	}

	for name, op := range c.Operations {
		if op == nil {
			return fmt.Errorf("config: operation %q is empty", name)
		}
		if op.Policy == "" {
			return fmt.Errorf("config: operation %q missing policy", name)
		}
		if _, err := policy.ParseKind(op.Policy); err != nil {
			return fmt.Errorf("config: operation %q: %w", name, err)
		}
		if op.Timeout < 0 {
			return fmt.Errorf("config: operation %q timeout must not be negative", name)
		}
		if op.RateLimit < 0 {
			return fmt.Errorf("config: operation %q rate_limit must not be negative", name)
		}
		if op.Burst < 0 {
			return fmt.Errorf("config: operation %q burst must not be negative", name)
		}
		if op.Breaker != nil && op.Breaker.OpenTimeout < 0 {
			return fmt.Errorf("config: operation %q breaker.open_timeout must not be negative", name)
		}
	}

	return nil
}
