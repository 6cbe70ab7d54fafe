package core

import "context"

// Reporter is the completion sink handed to a leaf for one attempt.
// A leaf reports exactly once; additional reports are ignored.
type Reporter[R any] interface {
	// Success hands over the raw value produced by the source. The value is
	// normalized by the configured Converter before any policy sees it, so a
	// "successful" transport response may still count as a failure.
	Success(value R)
	// Failure reports that the source could not produce a value.
	Failure(message string)
}

// Strategy is a leaf data source (local lookup, network call, ...).
//
// Start must return promptly and perform the work asynchronously. The
// attempt's outcome is delivered through report, possibly from another
// goroutine and possibly before Start returns. ctx is cancelled when the
// attempt is superseded or the owning proxy is destroyed; see Abandoned.
//
// Cancel is best effort: it asks in-flight work to stop but a report may still
// arrive. Cancel and Destroy must not report and must not block on the work.
type Strategy[C, R any] interface {
	Start(ctx context.Context, card C, report Reporter[R])
	Cancel()
	Destroy()
}

// ReporterFuncs adapts plain functions to the Reporter interface.
// Nil functions are ignored.
type ReporterFuncs[R any] struct {
	OnSuccess func(value R)
	OnFailure func(message string)
}

// Success implements Reporter.
func (f ReporterFuncs[R]) Success(value R) {
	if f.OnSuccess != nil {
		f.OnSuccess(value)
	}
}

// Failure implements Reporter.
func (f ReporterFuncs[R]) Failure(message string) {
	if f.OnFailure != nil {
		f.OnFailure(message)
	}
}
