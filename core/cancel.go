package core

import (
	"context"
	"errors"
)

// Cancellation causes attached to attempt contexts by the proxy.
var (
	ErrSuperseded = errors.New("rrouter: request superseded")
	ErrDestroyed  = errors.New("rrouter: proxy destroyed")
)

// Abandoned reports whether ctx was cancelled because its request was
// superseded or its proxy destroyed. Leaves must not report for abandoned
// attempts; any other cancellation is an ordinary failure.
func Abandoned(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}

	cause := context.Cause(ctx)

	return errors.Is(cause, ErrSuperseded) || errors.Is(cause, ErrDestroyed)
}
