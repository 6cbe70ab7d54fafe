package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/rrouter/chain"
	"github.com/hupe1980/rrouter/convert"
	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/logging"
	"github.com/hupe1980/rrouter/metrics"
	"github.com/hupe1980/rrouter/policy"
	"github.com/hupe1980/rrouter/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNoStrategies is returned by New for an empty leaf set.
	ErrNoStrategies = errors.New("proxy: at least one strategy is required")
	// ErrNilStrategy is returned by New when a step maps to a nil leaf.
	ErrNilStrategy = errors.New("proxy: nil strategy")
)

const instrumentationName = "github.com/hupe1980/rrouter/proxy"

// Proxy coordinates one logical operation across its leaf strategies.
// All methods are safe for concurrent use.
type Proxy[C core.Card[C], R any] struct {
	// immutable after New
	kind      policy.Kind
	name      string
	registry  registry.Registry
	converter core.Converter
	logger    logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	errMsg    string
	base      context.Context

	mu          sync.Mutex
	leaves      map[core.StepID]core.Strategy[C, R]
	cb          core.Callback[R]
	handler     policy.Handler
	chain       *chain.Chain
	card        C
	hasCard     bool
	generation  uint64
	genCtx      context.Context
	cancel      context.CancelCauseFunc
	opID        string
	span        trace.Span
	started     time.Time
	delivered   bool
	lastFailure string
	destroyed   bool
}

// New creates a Proxy for kind over leaves. cb receives terminal results and
// may be nil.
//
// The handler for kind is resolved immediately when possible. If the
// registry cannot resolve it yet (e.g. the default registry is installed
// later) resolution is retried on every Request, and a Request that still
// finds no handler fails with the generic error message.
func New[C core.Card[C], R any](
	kind policy.Kind,
	leaves map[core.StepID]core.Strategy[C, R],
	cb core.Callback[R],
	optFns ...func(o *Options),
) (*Proxy[C, R], error) {
	if len(leaves) == 0 {
		return nil, ErrNoStrategies
	}

	opts := Options{
		Converter:    convert.Default(""),
		Logger:       logging.NoOpLogger{},
		ErrorMessage: DefaultErrorMessage,
		Name:         kind.String(),
		Context:      context.Background(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Converter == nil {
		opts.Converter = convert.Default("")
	}

	if opts.ErrorMessage == "" {
		opts.ErrorMessage = DefaultErrorMessage
	}

	if opts.Name == "" {
		opts.Name = kind.String()
	}

	if opts.Context == nil {
		opts.Context = context.Background()
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(instrumentationName)
	}

	set := make(map[core.StepID]core.Strategy[C, R], len(leaves))

	for step, leaf := range leaves {
		if leaf == nil {
			return nil, fmt.Errorf("%w for step %s", ErrNilStrategy, step)
		}

		set[step] = leaf
	}

	p := &Proxy[C, R]{
		kind:      kind,
		name:      opts.Name,
		registry:  opts.Registry,
		converter: opts.Converter,
		logger:    logging.With(opts.Logger, "component", "proxy", "policy", opts.Name),
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		errMsg:    opts.ErrorMessage,
		base:      opts.Context,
		leaves:    set,
		cb:        cb,
	}

	p.bind()

	return p, nil
}

// Request starts, coalesces or supersedes an operation for card.
//
// While an operation is in flight, an equal card is a no-op and a differing
// card cancels the running work before dispatching anew. Requests after
// Destroy are ignored.
func (p *Proxy[C, R]) Request(card C) {
	var fx effects

	p.mu.Lock()
	p.request(card, &fx)
	p.mu.Unlock()

	fx.run()
}

// Destroy cancels outstanding work, destroys every leaf and drops the
// callback. Later reports are dropped. Destroy is idempotent.
func (p *Proxy[C, R]) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return
	}

	p.destroyed = true

	if p.cancel != nil {
		p.cancel(core.ErrDestroyed)
		p.cancel = nil
	}

	p.endSpan("destroyed", "")

	for _, leaf := range p.leaves {
		leaf.Cancel()
		leaf.Destroy()
	}

	var zero C

	p.leaves = nil
	p.cb = nil
	p.chain = nil
	p.handler = nil
	p.card = zero
	p.hasCard = false

	p.logger.Debug("Proxy destroyed", "operation_id", p.opID)
}

// ID returns the id of the latest dispatching request, or "" before the
// first one.
func (p *Proxy[C, R]) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.opID
}

// State is a diagnostic snapshot of a Proxy.
type State struct {
	Name        string
	OperationID string
	Generation  uint64
	Steps       []core.StepID
	Statuses    []chain.Status
	InFlight    bool
	Destroyed   bool
}

// State returns a snapshot for diagnostics.
func (p *Proxy[C, R]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := State{
		Name:        p.name,
		OperationID: p.opID,
		Generation:  p.generation,
		Destroyed:   p.destroyed,
	}

	if p.chain != nil {
		s.Steps = p.chain.Steps()
		s.Statuses = p.chain.Snapshot()
		s.InFlight = p.chain.InFlight()
	}

	return s
}

func (p *Proxy[C, R]) request(card C, fx *effects) {
	if p.destroyed {
		p.logger.Warn("Request after destroy ignored")
		return
	}

	if p.hasCard && p.chain != nil && p.chain.InFlight() && card.Equal(p.card) {
		p.metrics.Coalesced(p.name)
		p.logger.Debug("Request coalesced", "operation_id", p.opID)

		return
	}

	p.supersede()

	p.card = core.CloneCard(card)
	p.hasCard = true

	p.begin()

	if !p.bind() {
		p.logger.Warn("No handler registered for policy", "operation_id", p.opID, "kind", int(p.kind))
		p.metrics.DispatchFailed(p.name)
		p.deliver(fx, false, nil, p.errMsg)

		return
	}

	p.chain.Reset()

	if !p.handler.Dispatch(p.chain, launcher[C, R]{p: p, fx: fx}) {
		p.logger.Warn("Nothing to dispatch", "operation_id", p.opID)
		p.metrics.DispatchFailed(p.name)
		p.deliver(fx, false, nil, p.errMsg)
	}
}

// bind resolves the handler and builds the chain once.
func (p *Proxy[C, R]) bind() bool {
	if p.handler != nil {
		return true
	}

	r := p.registry
	if r == nil {
		def, err := registry.Default()
		if err != nil {
			return false
		}

		r = def
	}

	h, ok := r.Resolve(p.kind)
	if !ok || h == nil {
		return false
	}

	c, err := chain.New(h.Steps()...)
	if err != nil {
		p.logger.Error("Invalid handler", "error", err)
		return false
	}

	p.handler = h
	p.chain = c

	return true
}

// supersede abandons the previous generation.
func (p *Proxy[C, R]) supersede() {
	if p.cancel != nil {
		p.cancel(core.ErrSuperseded)
		p.cancel = nil
	}

	if p.chain != nil && p.chain.InFlight() {
		p.logger.Debug("Superseding in-flight request", "operation_id", p.opID)

		for i, status := range p.chain.Snapshot() {
			if status != chain.InProgress {
				continue
			}

			step, _ := p.chain.StepAt(i)
			if leaf, ok := p.leaves[step]; ok {
				leaf.Cancel()
			}
		}
	}

	p.endSpan("superseded", "")
}

// begin opens a new generation.
func (p *Proxy[C, R]) begin() {
	p.generation++
	p.opID = uuid.NewString()
	p.started = time.Now()
	p.delivered = false
	p.lastFailure = ""

	ctx, cancel := context.WithCancelCause(p.base)
	ctx, p.span = p.tracer.Start(ctx, "rrouter.request", trace.WithAttributes(
		attribute.String("rrouter.policy", p.name),
		attribute.String("rrouter.operation_id", p.opID),
	))

	p.genCtx = ctx
	p.cancel = cancel
}

func (p *Proxy[C, R]) endSpan(outcome, message string) {
	if p.span == nil {
		return
	}

	p.span.SetAttributes(attribute.String("rrouter.outcome", outcome))

	if outcome == metrics.OutcomeFailure {
		p.span.SetStatus(codes.Error, message)
	}

	p.span.End()
	p.span = nil
}

// deliver schedules the terminal callback for the current generation.
func (p *Proxy[C, R]) deliver(fx *effects, success bool, value any, message string) {
	if p.delivered {
		return
	}

	p.delivered = true

	elapsed := time.Since(p.started)
	p.metrics.Delivered(p.name, success, elapsed)

	if success {
		p.endSpan(metrics.OutcomeSuccess, "")
	} else {
		p.endSpan(metrics.OutcomeFailure, message)
	}

	logging.LogDelivery(p.logger, elapsed, success, message, "operation_id", p.opID)

	cb := p.cb
	if cb == nil {
		return
	}

	if success {
		result, _ := value.(R)
		fx.add(func() { cb.OnSuccess(result) })

		return
	}

	fx.add(func() { cb.OnFailure(message) })
}

// complete is the intake for every leaf report.
func (p *Proxy[C, R]) complete(rep *reporter[C, R], ok bool, value R, message string) {
	o := policy.Outcome{
		Index:   rep.index,
		Step:    rep.step,
		Value:   value,
		Message: message,
		Success: ok,
	}

	if ok {
		env := p.converter.Normalize(value)
		o.Success = env.Succeeded()

		if !o.Success {
			o.Message = env.Message()
		}
	}

	if !o.Success && o.Message == "" {
		o.Message = p.errMsg
	}

	var fx effects

	p.mu.Lock()
	p.merge(rep.gen, o, &fx)
	p.mu.Unlock()

	fx.run()
}

func (p *Proxy[C, R]) merge(gen uint64, o policy.Outcome, fx *effects) {
	if p.destroyed || gen != p.generation || p.chain == nil || p.chain.StatusAt(o.Index) != chain.InProgress {
		p.metrics.Stale(p.name)
		p.logger.Debug("Stale completion dropped", "step", o.Step.String(), "index", o.Index, "generation", gen)

		return
	}

	p.metrics.LeafCompleted(o.Step.String(), o.Success)
	p.logger.Debug("Leaf completed", "operation_id", p.opID, "step", o.Step.String(), "index", o.Index, "success", o.Success)

	if !o.Success {
		p.lastFailure = o.Message
	}

	if p.handler == nil {
		p.deliver(fx, o.Success, o.Value, o.Message)
		return
	}

	if !p.handler.Merge(p.chain, terminal[C, R]{p: p, fx: fx}, o) {
		return
	}

	if p.handler.Dispatch(p.chain, launcher[C, R]{p: p, fx: fx}) {
		return
	}

	p.metrics.DispatchFailed(p.name)

	msg := p.lastFailure
	if msg == "" {
		msg = p.errMsg
	}

	p.deliver(fx, false, nil, msg)
}

// start runs outside the proxy mutex.
func (p *Proxy[C, R]) start(ctx context.Context, leaf core.Strategy[C, R], card C, rep *reporter[C, R]) {
	if ctx.Err() != nil {
		if !core.Abandoned(ctx) {
			rep.Failure(context.Cause(ctx).Error())
		}

		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Leaf panicked", "step", rep.step.String(), "panic", r)
			rep.Failure(p.errMsg)
		}
	}()

	leaf.Start(ctx, card, rep)
}

// effects are collected under the mutex and run after it is released.
type effects []func()

func (fx *effects) add(f func()) { *fx = append(*fx, f) }

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}

type launcher[C core.Card[C], R any] struct {
	p  *Proxy[C, R]
	fx *effects
}

func (l launcher[C, R]) Has(step core.StepID) bool {
	_, ok := l.p.leaves[step]
	return ok
}

func (l launcher[C, R]) Launch(index int, step core.StepID) {
	p := l.p
	leaf := p.leaves[step]
	ctx, card := p.genCtx, p.card
	rep := &reporter[C, R]{p: p, gen: p.generation, index: index, step: step}

	p.logger.Debug("Launching leaf", "operation_id", p.opID, "step", step.String(), "index", index)

	l.fx.add(func() { p.start(ctx, leaf, card, rep) })
}

type terminal[C core.Card[C], R any] struct {
	p  *Proxy[C, R]
	fx *effects
}

func (t terminal[C, R]) Succeed(value any) { t.p.deliver(t.fx, true, value, "") }

func (t terminal[C, R]) Fail(message string) { t.p.deliver(t.fx, false, nil, message) }

// reporter is bound to one launch; only its first report counts.
type reporter[C core.Card[C], R any] struct {
	p     *Proxy[C, R]
	gen   uint64
	index int
	step  core.StepID
	once  sync.Once
}

func (r *reporter[C, R]) Success(value R) {
	r.once.Do(func() { r.p.complete(r, true, value, "") })
}

func (r *reporter[C, R]) Failure(message string) {
	var zero R
	r.once.Do(func() { r.p.complete(r, false, zero, message) })
}
