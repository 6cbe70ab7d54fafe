// Package core provides the capability contracts shared by every rrouter
// component. It defines the small interfaces the orchestration engine is
// built around:
//
//   - Steps (StepID) naming the data sources a policy can dispatch to
//   - Request cards (Card, Cloner) carrying the caller's parameters
//   - Leaf strategies (Strategy, Reporter) performing the actual fetch
//   - Terminal callbacks (Callback) receiving the single final result
//   - Response envelopes (Envelope, Converter) normalizing raw leaf values
//
// The package intentionally contains no orchestration logic. Concrete
// process tracking lives in package chain, dispatch and merge rules in
// package policy and the per-operation lifecycle in package proxy.
package core
