// Package chain implements the process chain: the per-operation record of
// which steps of a policy have been dispatched and which have completed.
//
// A Chain has no synchronization of its own. The proxy that owns it
// serializes every access.
package chain

import (
	"errors"

	"github.com/hupe1980/rrouter/core"
)

// ErrEmptyChain is returned by New when no steps are supplied.
var ErrEmptyChain = errors.New("chain: at least one step is required")

// Status is the lifecycle state of a single step.
type Status int

const (
	// Idle means the step has not been dispatched yet.
	Idle Status = iota
	// InProgress means the step's leaf is running.
	InProgress
	// Completed means the step finished or was skipped.
	Completed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Chain tracks an ordered step sequence and a progress cursor.
type Chain struct {
	steps    []core.StepID
	status   []Status
	progress int
}

// New creates a chain with every step Idle and the cursor at 0.
func New(steps ...core.StepID) (*Chain, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyChain
	}

	return &Chain{
		steps:  append([]core.StepID(nil), steps...),
		status: make([]Status, len(steps)),
	}, nil
}

// Len returns the number of steps.
func (c *Chain) Len() int { return len(c.steps) }

// Steps returns a copy of the step sequence.
func (c *Chain) Steps() []core.StepID {
	return append([]core.StepID(nil), c.steps...)
}

// StepAt returns the step at index.
func (c *Chain) StepAt(index int) (core.StepID, bool) {
	if index < 0 || index >= len(c.steps) {
		return 0, false
	}

	return c.steps[index], true
}

// CurrentStep returns the step under the cursor. It reports false once the
// cursor has moved past the last step.
func (c *Chain) CurrentStep() (core.StepID, bool) {
	return c.StepAt(c.progress)
}

// Progress returns the cursor position.
func (c *Chain) Progress() int { return c.progress }

// StatusAt returns the status at index. Indexes outside the chain count as
// Completed so that an exhausted chain needs no special casing.
func (c *Chain) StatusAt(index int) Status {
	if index < 0 || index >= len(c.status) {
		return Completed
	}

	return c.status[index]
}

// CurrentStatus returns the status under the cursor.
func (c *Chain) CurrentStatus() Status {
	return c.StatusAt(c.progress)
}

// SetStatus updates the status at index. Transitions only move forward
// (Idle -> InProgress -> Completed); a backward transition or an index
// outside the chain is rejected and reported as false.
func (c *Chain) SetStatus(index int, status Status) bool {
	if index < 0 || index >= len(c.status) {
		return false
	}
	if status < c.status[index] {
		return false
	}

	c.status[index] = status

	return true
}

// Advance sets the status under the cursor. Completing the current step
// moves the cursor to the next one.
func (c *Chain) Advance(status Status) {
	if !c.SetStatus(c.progress, status) {
		return
	}

	if status == Completed {
		c.progress++
	}
}

// ForceCompleteAll marks every step Completed and moves the cursor past the
// end. No leaf is touched; work that is still running simply becomes stale.
func (c *Chain) ForceCompleteAll() {
	for i := range c.status {
		c.status[i] = Completed
	}
	c.progress = len(c.status)
}

// Reset returns every step to Idle and the cursor to 0.
func (c *Chain) Reset() {
	for i := range c.status {
		c.status[i] = Idle
	}
	c.progress = 0
}

// IsAllCompleted reports whether every step is Completed.
func (c *Chain) IsAllCompleted() bool {
	for _, s := range c.status {
		if s != Completed {
			return false
		}
	}

	return true
}

// IsIdle reports whether no step has been dispatched since the last Reset.
func (c *Chain) IsIdle() bool {
	for _, s := range c.status {
		if s != Idle {
			return false
		}
	}

	return true
}

// InFlight reports whether at least one step is InProgress.
func (c *Chain) InFlight() bool {
	for _, s := range c.status {
		if s == InProgress {
			return true
		}
	}

	return false
}

// Snapshot returns a copy of all step statuses.
func (c *Chain) Snapshot() []Status {
	return append([]Status(nil), c.status...)
}
