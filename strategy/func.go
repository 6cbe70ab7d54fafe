package strategy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/logging"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var errCancelled = errors.New("strategy: attempt cancelled")

// LoadFunc fetches the raw value for card. It should honor ctx.
type LoadFunc[C, R any] func(ctx context.Context, card C) (R, error)

// Options configures a Func.
type Options struct {
	// Pool bounds concurrent loads. Optional.
	Pool *Pool
	// Limiter throttles loads. Optional.
	Limiter *rate.Limiter
	// Breaker short-circuits loads while open. Optional.
	Breaker *gobreaker.CircuitBreaker
	// Timeout bounds a single load. Zero means no timeout.
	Timeout time.Duration
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// WithPool runs loads on p.
func WithPool(p *Pool) func(o *Options) {
	return func(o *Options) { o.Pool = p }
}

// WithRateLimit throttles loads through l.
func WithRateLimit(l *rate.Limiter) func(o *Options) {
	return func(o *Options) { o.Limiter = l }
}

// WithCircuitBreaker guards loads with a breaker built from st.
func WithCircuitBreaker(name string, st gobreaker.Settings) func(o *Options) {
	return func(o *Options) {
		st.Name = name
		o.Breaker = gobreaker.NewCircuitBreaker(st)
	}
}

// WithTimeout bounds every load by d.
func WithTimeout(d time.Duration) func(o *Options) {
	return func(o *Options) { o.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Func is a core.Strategy backed by a LoadFunc.
type Func[C, R any] struct {
	step   core.StepID
	load   LoadFunc[C, R]
	opts   Options
	logger logging.Logger

	mu        sync.Mutex
	attempts  map[uint64]context.CancelCauseFunc
	next      uint64
	destroyed bool

	wg sync.WaitGroup
}

// New creates a Func for step.
func New[C, R any](step core.StepID, load LoadFunc[C, R], optFns ...func(o *Options)) *Func[C, R] {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Func[C, R]{
		step:     step,
		load:     load,
		opts:     opts,
		logger:   logging.With(opts.Logger, "component", "strategy", "step", step.String()),
		attempts: make(map[uint64]context.CancelCauseFunc),
	}
}

// Step returns the step the leaf serves.
func (f *Func[C, R]) Step() core.StepID { return f.step }

// Start implements core.Strategy. Each call is an independent attempt;
// earlier attempts are stopped through their context or Cancel.
func (f *Func[C, R]) Start(ctx context.Context, card C, report core.Reporter[R]) {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		f.logger.Debug("Start after destroy ignored")

		return
	}

	id := f.next
	f.next++

	actx, cancel := context.WithCancelCause(ctx)
	f.attempts[id] = cancel
	f.wg.Add(1)
	f.mu.Unlock()

	go f.run(actx, id, card, report)
}

// Cancel implements core.Strategy. Running attempts stop without reporting.
func (f *Func[C, R]) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelAll()
}

// Destroy implements core.Strategy. Later Start calls are ignored.
func (f *Func[C, R]) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.destroyed = true
	f.cancelAll()
}

// Wait blocks until every attempt goroutine has exited.
func (f *Func[C, R]) Wait() { f.wg.Wait() }

func (f *Func[C, R]) cancelAll() {
	for id, cancel := range f.attempts {
		cancel(errCancelled)
		delete(f.attempts, id)
	}
}

func (f *Func[C, R]) forget(id uint64) {
	f.mu.Lock()
	cancel, ok := f.attempts[id]
	delete(f.attempts, id)
	f.mu.Unlock()

	if ok {
		cancel(nil)
	}
}

func (f *Func[C, R]) run(ctx context.Context, id uint64, card C, report core.Reporter[R]) {
	defer f.wg.Done()
	defer f.forget(id)

	value, err := f.execute(ctx, card)

	if ctx.Err() != nil && silenced(ctx) {
		f.logger.Debug("Attempt abandoned", "attempt", id)
		return
	}

	if err != nil {
		f.logger.Debug("Load failed", "attempt", id, "error", err)
		report.Failure(err.Error())

		return
	}

	report.Success(value)
}

func (f *Func[C, R]) execute(ctx context.Context, card C) (R, error) {
	var zero R

	if f.opts.Pool != nil {
		if err := f.opts.Pool.Acquire(ctx); err != nil {
			return zero, err
		}
		defer f.opts.Pool.Release()
	}

	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	if f.opts.Breaker == nil {
		return f.load(ctx, card)
	}

	v, err := f.opts.Breaker.Execute(func() (interface{}, error) {
		return f.load(ctx, card)
	})
	if err != nil {
		return zero, err
	}

	r, _ := v.(R)

	return r, nil
}

func silenced(ctx context.Context) bool {
	return core.Abandoned(ctx) || errors.Is(context.Cause(ctx), errCancelled)
}
