package policy

import (
	"github.com/hupe1980/rrouter/chain"
	"github.com/hupe1980/rrouter/core"
)

// Race launches every step concurrently. The first success is delivered
// immediately and the remaining steps are marked Completed so their late
// reports become stale; their work is not cancelled. A failure is only
// delivered once every step has completed, carrying the message of the
// last failing step.
type Race struct {
	steps []core.StepID
}

// NewRace creates a race handler over steps.
func NewRace(steps ...core.StepID) *Race {
	return &Race{steps: append([]core.StepID(nil), steps...)}
}

// Steps implements Handler.
func (h *Race) Steps() []core.StepID {
	return append([]core.StepID(nil), h.steps...)
}

// Dispatch implements Handler.
func (h *Race) Dispatch(c *chain.Chain, l Launcher) bool {
	launched := 0

	for i, step := range c.Steps() {
		if c.StatusAt(i) != chain.Idle {
			continue
		}

		if !l.Has(step) {
			c.SetStatus(i, chain.Completed)
			continue
		}

		c.SetStatus(i, chain.InProgress)
		l.Launch(i, step)
		launched++
	}

	if launched == 0 {
		c.ForceCompleteAll()
		return false
	}

	return true
}

// Merge implements Handler. It never asks for another dispatch.
func (h *Race) Merge(c *chain.Chain, t Terminal, o Outcome) bool {
	if stale(c, o) {
		return false
	}

	c.SetStatus(o.Index, chain.Completed)

	if o.Success {
		c.ForceCompleteAll()
		t.Succeed(o.Value)

		return false
	}

	if c.IsAllCompleted() {
		t.Fail(o.Message)
	}

	return false
}
