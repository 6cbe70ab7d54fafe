// Package logging provides a minimal logging interface and adapters for rrouter.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that proxies, leaf adapters and the CLI use for observability. Arguments
// after the message are slog style key/value pairs. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RouterLogger, a configurable slog backed logger with contextual helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	p, err := proxy.New(policy.OnlyLocal, leaves, cb, proxy.WithLogger(logger))
//
// The interface is kept small so any structured logger can be plugged in.
package logging
