package proxy

import (
	"context"

	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/logging"
	"github.com/hupe1980/rrouter/metrics"
	"github.com/hupe1980/rrouter/registry"
	"go.opentelemetry.io/otel/trace"
)

// DefaultErrorMessage is delivered when an operation fails without a leaf
// supplied message, e.g. when no handler or no leaf could be dispatched.
const DefaultErrorMessage = "request failure"

// Options configures a Proxy using the functional options pattern.
//
// Example:
//
//	p, err := proxy.New(policy.RaceLocalAndRemote, leaves, cb,
//	    proxy.WithRegistry(registry.Builtin()),
//	    proxy.WithLogger(logger),
//	)
type Options struct {
	// Registry resolves the handler for the proxy's policy kind. When nil the
	// process-wide default registry is consulted on every request.
	Registry registry.Registry

	// Converter normalizes raw leaf values. Defaults to convert.Default.
	Converter core.Converter

	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger

	// Metrics is optional; a nil value records nothing.
	Metrics *metrics.Metrics

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer

	// ErrorMessage is the generic failure message. Defaults to DefaultErrorMessage.
	ErrorMessage string

	// Name labels logs, metrics and spans. Defaults to the policy kind's name.
	Name string

	// Context is the parent of every request generation's context.
	// Defaults to context.Background.
	Context context.Context
}

// WithRegistry sets the handler registry.
func WithRegistry(r registry.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = r }
}

// WithConverter sets the raw value converter.
func WithConverter(c core.Converter) func(o *Options) {
	return func(o *Options) { o.Converter = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) func(o *Options) {
	return func(o *Options) { o.Metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) func(o *Options) {
	return func(o *Options) { o.Tracer = t }
}

// WithErrorMessage sets the generic failure message.
func WithErrorMessage(msg string) func(o *Options) {
	return func(o *Options) { o.ErrorMessage = msg }
}

// WithName sets the operation name.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithContext sets the parent context of request generations.
func WithContext(ctx context.Context) func(o *Options) {
	return func(o *Options) { o.Context = ctx }
}
