package policy

import (
	"github.com/hupe1980/rrouter/chain"
	"github.com/hupe1980/rrouter/core"
)

// Sequential runs one step at a time in chain order and stops at the first
// success. Steps without a registered leaf are skipped. A one-step
// Sequential therefore mirrors its single leaf verbatim.
type Sequential struct {
	steps []core.StepID
}

// NewSequential creates a sequential handler over steps.
func NewSequential(steps ...core.StepID) *Sequential {
	return &Sequential{steps: append([]core.StepID(nil), steps...)}
}

// Steps implements Handler.
func (h *Sequential) Steps() []core.StepID {
	return append([]core.StepID(nil), h.steps...)
}

// Dispatch implements Handler.
func (h *Sequential) Dispatch(c *chain.Chain, l Launcher) bool {
	for {
		if c.CurrentStatus() != chain.Idle {
			c.ForceCompleteAll()
			return false
		}

		step, _ := c.CurrentStep()
		if !l.Has(step) {
			c.Advance(chain.Completed)
			continue
		}

		c.Advance(chain.InProgress)
		l.Launch(c.Progress(), step)

		return true
	}
}

// Merge implements Handler.
func (h *Sequential) Merge(c *chain.Chain, t Terminal, o Outcome) bool {
	if o.Index != c.Progress() || stale(c, o) {
		return false
	}

	if o.Success {
		c.ForceCompleteAll()
		t.Succeed(o.Value)

		return false
	}

	c.Advance(chain.Completed)

	if c.IsAllCompleted() {
		t.Fail(o.Message)
		return false
	}

	return true
}
