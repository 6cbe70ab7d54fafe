package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rrouter/core"
	"github.com/jonboulle/clockwork"
)

// Attempt is one recorded Start call.
type Attempt[C, R any] struct {
	Ctx      context.Context
	Card     C
	Reporter core.Reporter[R]
}

// Leaf is a manually driven strategy: every Start is recorded and the test
// decides when and how each attempt reports.
type Leaf[C, R any] struct {
	mu        sync.Mutex
	attempts  []*Attempt[C, R]
	cancels   int
	destroyed bool
	started   chan struct{}
}

// NewLeaf creates a manually driven leaf.
func NewLeaf[C, R any]() *Leaf[C, R] {
	return &Leaf[C, R]{started: make(chan struct{}, 64)}
}

// Start implements core.Strategy.
func (l *Leaf[C, R]) Start(ctx context.Context, card C, report core.Reporter[R]) {
	l.mu.Lock()
	l.attempts = append(l.attempts, &Attempt[C, R]{Ctx: ctx, Card: card, Reporter: report})
	l.mu.Unlock()

	select {
	case l.started <- struct{}{}:
	default:
	}
}

// Cancel implements core.Strategy.
func (l *Leaf[C, R]) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancels++
}

// Destroy implements core.Strategy.
func (l *Leaf[C, R]) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyed = true
}

// Starts returns the number of recorded attempts.
func (l *Leaf[C, R]) Starts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// Attempt returns the i-th attempt.
func (l *Leaf[C, R]) Attempt(i int) *Attempt[C, R] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts[i]
}

// Cancels returns how often Cancel was called.
func (l *Leaf[C, R]) Cancels() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancels
}

// Destroyed reports whether Destroy was called.
func (l *Leaf[C, R]) Destroyed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyed
}

// Succeed reports value for attempt i.
func (l *Leaf[C, R]) Succeed(i int, value R) { l.Attempt(i).Reporter.Success(value) }

// Fail reports message for attempt i.
func (l *Leaf[C, R]) Fail(i int, message string) { l.Attempt(i).Reporter.Failure(message) }

// WaitStarted blocks until at least n attempts were recorded or the timeout
// elapses.
func (l *Leaf[C, R]) WaitStarted(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for l.Starts() < n {
		select {
		case <-l.started:
		case <-deadline:
			return l.Starts() >= n
		}
	}
	return true
}

// ImmediateLeaf reports synchronously from inside Start.
type ImmediateLeaf[C, R any] struct {
	Value   R
	Message string
	OK      bool

	starts atomic.Int32
}

// Succeeding returns a leaf that always succeeds with value.
func Succeeding[C, R any](value R) *ImmediateLeaf[C, R] {
	return &ImmediateLeaf[C, R]{Value: value, OK: true}
}

// Failing returns a leaf that always fails with message.
func Failing[C, R any](message string) *ImmediateLeaf[C, R] {
	return &ImmediateLeaf[C, R]{Message: message}
}

// Start implements core.Strategy.
func (l *ImmediateLeaf[C, R]) Start(_ context.Context, _ C, report core.Reporter[R]) {
	l.starts.Add(1)
	if l.OK {
		report.Success(l.Value)
		return
	}
	report.Failure(l.Message)
}

// Cancel implements core.Strategy.
func (l *ImmediateLeaf[C, R]) Cancel() {}

// Destroy implements core.Strategy.
func (l *ImmediateLeaf[C, R]) Destroy() {}

// Starts returns the number of Start calls.
func (l *ImmediateLeaf[C, R]) Starts() int { return int(l.starts.Load()) }

// DelayedLeaf reports from a goroutine once Delay has passed on Clock.
// A cancelled attempt does not report.
type DelayedLeaf[C, R any] struct {
	Clock   clockwork.Clock
	Delay   time.Duration
	Value   R
	Message string
	OK      bool

	wg     sync.WaitGroup
	starts atomic.Int32
}

// Start implements core.Strategy.
func (l *DelayedLeaf[C, R]) Start(ctx context.Context, _ C, report core.Reporter[R]) {
	l.starts.Add(1)
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()

		select {
		case <-l.Clock.After(l.Delay):
		case <-ctx.Done():
			return
		}

		if l.OK {
			report.Success(l.Value)
			return
		}
		report.Failure(l.Message)
	}()
}

// Cancel implements core.Strategy.
func (l *DelayedLeaf[C, R]) Cancel() {}

// Destroy implements core.Strategy.
func (l *DelayedLeaf[C, R]) Destroy() {}

// Starts returns the number of Start calls.
func (l *DelayedLeaf[C, R]) Starts() int { return int(l.starts.Load()) }

// Wait blocks until every started goroutine has exited.
func (l *DelayedLeaf[C, R]) Wait() { l.wg.Wait() }
