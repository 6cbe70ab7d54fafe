// Package strategy provides reusable leaf strategies.
//
// Func turns a plain load function into a core.Strategy: every Start runs
// the function on its own goroutine and reports the result once. Optional
// guards can be stacked in front of the load function:
//
//   - a Pool bounding how many loads run at the same time
//   - a rate limiter (golang.org/x/time/rate)
//   - a circuit breaker (github.com/sony/gobreaker)
//   - a per-attempt timeout
//
// Attempts that were superseded, destroyed or cancelled through Cancel do
// not report.
package strategy
