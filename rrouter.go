// Package rrouter provides a high-level façade over the request orchestration
// engine. It wires the handler registry, converter, logger, metrics, tracing
// and YAML configuration into proxies and leaf strategies. Most applications
// interact with this package by:
//  1. Creating a Router via New() (optionally with a config.Config)
//  2. Building leaves per operation with Leaf (pool, rate limit, breaker and
//     timeout applied from the operation's configuration)
//  3. Creating long-lived proxies with NewProxy, or running one-shot
//     operations synchronously with Do
//
// All defaults are safe for local development and testing: the built-in
// registry, the default converter, a no-op logger and no metrics.
package rrouter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/rrouter/config"
	"github.com/hupe1980/rrouter/convert"
	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/logging"
	"github.com/hupe1980/rrouter/metrics"
	"github.com/hupe1980/rrouter/policy"
	"github.com/hupe1980/rrouter/proxy"
	"github.com/hupe1980/rrouter/registry"
	"github.com/hupe1980/rrouter/strategy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	// ErrFailed is matched by every FailureError.
	ErrFailed = errors.New("rrouter: operation failed")
	// ErrClosed is returned once the Router has been closed.
	ErrClosed = errors.New("rrouter: router closed")
)

// FailureError carries the terminal failure message of an operation run by Do.
type FailureError struct {
	Operation string
	Message   string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("rrouter: %s: %s", e.Operation, e.Message)
}

// Is reports whether target is ErrFailed.
func (e *FailureError) Is(target error) bool { return target == ErrFailed }

// Options configures the Router.
type Options struct {
	// Config binds operations to policies. Defaults to config.DefaultConfig.
	Config *config.Config

	// Registry defaults to registry.Builtin.
	Registry registry.Registry

	// Converter defaults to convert.Default.
	Converter core.Converter

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Registerer, when set, receives the orchestration collectors.
	Registerer prometheus.Registerer

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// Router is the high-level façade aggregating registry, configuration and
// observability for proxies and leaves.
type Router struct {
	cfg       *config.Config
	registry  registry.Registry
	converter core.Converter
	logger    logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	pool      *strategy.Pool

	mu      sync.Mutex
	closers []func()
	closed  bool
	guards  map[string]*guard
}

// guard holds the limiter and breaker shared by every leaf of one
// operation step.
type guard struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a Router with optional overrides.
func New(optFns ...func(o *Options)) (*Router, error) {
	opts := Options{
		Registry:  registry.Builtin(),
		Converter: convert.Default(""),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	if opts.Registry == nil {
		return nil, registry.ErrNilRegistry
	}

	r := &Router{
		cfg:       opts.Config,
		registry:  opts.Registry,
		converter: opts.Converter,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
		guards:    make(map[string]*guard),
	}

	if opts.Registerer != nil {
		r.metrics = metrics.New(opts.Registerer)
	}

	if opts.Config.Pool.Size > 0 {
		r.pool = strategy.NewPool(opts.Config.Pool.Size)
	}

	return r, nil
}

// Config returns the active configuration.
func (r *Router) Config() *config.Config { return r.cfg }

// Metrics returns the collectors, or nil when no Registerer was supplied.
func (r *Router) Metrics() *metrics.Metrics { return r.metrics }

// Kind returns the policy for operation. Operations missing from the
// configuration may be named by their policy directly ("only_local", ...).
func (r *Router) Kind(operation string) (policy.Kind, error) {
	kind, err := r.cfg.Kind(operation)
	if err == nil {
		return kind, nil
	}

	if !errors.Is(err, config.ErrUnknownOperation) {
		return 0, err
	}

	if kind, perr := policy.ParseKind(operation); perr == nil {
		return kind, nil
	}

	return 0, err
}

// Close destroys every proxy created through NewProxy. It is idempotent.
func (r *Router) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.closed = true
	r.mu.Unlock()

	for _, fn := range closers {
		fn()
	}

	return nil
}

func (r *Router) proxyOptions(operation string) []func(o *proxy.Options) {
	return []func(o *proxy.Options){func(o *proxy.Options) {
		o.Registry = r.registry
		o.Converter = r.converter
		o.Logger = logging.With(r.logger, "operation", operation)
		o.Metrics = r.metrics
		o.Tracer = r.tracer
		o.ErrorMessage = r.cfg.ErrorMessage
		o.Name = operation
	}}
}

// NewProxy creates a proxy for operation. The proxy is destroyed by Close
// unless the caller destroys it first. Additional options override the
// router's defaults.
func NewProxy[C core.Card[C], R any](
	r *Router,
	operation string,
	leaves map[core.StepID]core.Strategy[C, R],
	cb core.Callback[R],
	optFns ...func(o *proxy.Options),
) (*proxy.Proxy[C, R], error) {
	kind, err := r.Kind(operation)
	if err != nil {
		return nil, err
	}

	p, err := proxy.New(kind, leaves, cb, append(r.proxyOptions(operation), optFns...)...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		p.Destroy()
		return nil, ErrClosed
	}

	r.closers = append(r.closers, p.Destroy)

	return p, nil
}

// Leaf builds a function-backed leaf for operation's step. The shared pool
// and the operation's timeout, rate limit and circuit breaker are applied
// when configured. Leaves of the same operation step share one limiter and
// one breaker for the Router's lifetime.
func Leaf[C, R any](r *Router, operation string, step core.StepID, load strategy.LoadFunc[C, R], optFns ...func(o *strategy.Options)) *strategy.Func[C, R] {
	opts := []func(o *strategy.Options){func(o *strategy.Options) {
		o.Pool = r.pool
		o.Logger = logging.With(r.logger, "operation", operation)
	}}

	if op, err := r.cfg.Operation(operation); err == nil {
		if op.Timeout > 0 {
			opts = append(opts, strategy.WithTimeout(op.Timeout))
		}

		g := r.guard(operation, step, op)
		opts = append(opts, func(o *strategy.Options) {
			o.Limiter = g.limiter
			o.Breaker = g.breaker
		})
	}

	return strategy.New(step, load, append(opts, optFns...)...)
}

// guard returns the limiter and breaker for operation's step, creating them
// on first use.
func (r *Router) guard(operation string, step core.StepID, op *config.Operation) *guard {
	key := operation + "/" + step.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guards[key]; ok {
		return g
	}

	g := &guard{}

	if op.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(op.RateLimit), op.Burst)
	}

	if b := op.Breaker; b != nil {
		maxFailures := b.MaxFailures
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    key,
			Timeout: b.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			// a cancelled race loser says nothing about the back end
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
	}

	r.guards[key] = g

	return g
}

// Do runs operation once for card and waits for its terminal result. A
// failure is returned as *FailureError. When ctx ends first the operation is
// abandoned and ctx's error returned. The leaves are destroyed on return.
func Do[C core.Card[C], R any](
	ctx context.Context,
	r *Router,
	operation string,
	leaves map[core.StepID]core.Strategy[C, R],
	card C,
) (R, error) {
	var zero R

	kind, err := r.Kind(operation)
	if err != nil {
		return zero, err
	}

	type result struct {
		value R
		err   error
	}

	done := make(chan result, 1)

	cb := core.CallbackFuncs[R]{
		Success: func(v R) { done <- result{value: v} },
		Failure: func(msg string) {
			done <- result{err: &FailureError{Operation: operation, Message: msg}}
		},
	}

	p, err := proxy.New(kind, leaves, core.Callback[R](cb), append(r.proxyOptions(operation), func(o *proxy.Options) {
		o.Context = ctx
	})...)
	if err != nil {
		return zero, err
	}
	defer p.Destroy()

	p.Request(card)

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
