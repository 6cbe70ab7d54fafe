package testutil

import (
	"sync"
	"time"
)

// Recorder is a core.Callback that records every delivery.
type Recorder[R any] struct {
	mu        sync.Mutex
	successes []R
	failures  []string
	signal    chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder[R any]() *Recorder[R] {
	return &Recorder[R]{signal: make(chan struct{}, 64)}
}

// OnSuccess implements core.Callback.
func (r *Recorder[R]) OnSuccess(result R) {
	r.mu.Lock()
	r.successes = append(r.successes, result)
	r.mu.Unlock()
	r.notify()
}

// OnFailure implements core.Callback.
func (r *Recorder[R]) OnFailure(message string) {
	r.mu.Lock()
	r.failures = append(r.failures, message)
	r.mu.Unlock()
	r.notify()
}

func (r *Recorder[R]) notify() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Successes returns a copy of the recorded successes.
func (r *Recorder[R]) Successes() []R {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]R(nil), r.successes...)
}

// Failures returns a copy of the recorded failure messages.
func (r *Recorder[R]) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

// Count returns the total number of deliveries.
func (r *Recorder[R]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes) + len(r.failures)
}

// WaitFor blocks until at least n deliveries were recorded or the timeout
// elapses. It reports whether n was reached.
func (r *Recorder[R]) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for r.Count() < n {
		select {
		case <-r.signal:
		case <-deadline:
			return r.Count() >= n
		}
	}
	return true
}
