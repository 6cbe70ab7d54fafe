package policy

import (
	"fmt"

	"github.com/hupe1980/rrouter/chain"
	"github.com/hupe1980/rrouter/core"
)

// Launcher starts leaves on behalf of a handler.
type Launcher interface {
	// Has reports whether a leaf is registered for step.
	Has(step core.StepID) bool
	// Launch schedules the leaf for step as the attempt at chain index.
	// The handler must have marked the index InProgress beforehand.
	Launch(index int, step core.StepID)
}

// Terminal receives the single terminal result of an operation.
type Terminal interface {
	Succeed(value any)
	Fail(message string)
}

// Outcome is one leaf completion after normalization.
type Outcome struct {
	Index   int
	Step    core.StepID
	Value   any
	Message string
	Success bool
}

// Handler implements one dispatch policy.
type Handler interface {
	// Steps returns the step sequence used to size the chain.
	Steps() []core.StepID
	// Dispatch issues work for the chain. It returns false, with the chain
	// forced Completed, when nothing could be dispatched.
	Dispatch(c *chain.Chain, l Launcher) bool
	// Merge folds a completion into the chain. It returns true when the
	// caller should dispatch again, and false when the operation finished,
	// the outcome was stale, or other steps are still running.
	Merge(c *chain.Chain, t Terminal, o Outcome) bool
}

// New returns the built-in handler for kind.
func New(kind Kind) (Handler, error) {
	switch kind {
	case OnlyRemote, OnlyLocal, FallbackLocalThenRemote, FallbackRemoteThenLocal:
		return NewSequential(kind.Steps()...), nil
	case RaceLocalAndRemote:
		return NewRace(kind.Steps()...), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// stale reports whether o no longer matches the chain position it claims.
func stale(c *chain.Chain, o Outcome) bool {
	step, ok := c.StepAt(o.Index)
	if !ok || step != o.Step {
		return true
	}

	return c.StatusAt(o.Index) != chain.InProgress
}
