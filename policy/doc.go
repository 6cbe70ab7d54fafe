// Package policy defines the dispatch and merge rules that decide which leaf
// strategies run for an operation and how their completions turn into a
// single terminal result.
//
// A Handler never touches leaves directly. It advances a chain.Chain and
// asks a Launcher to start the leaf for a given step; the owning proxy turns
// those requests into actual Start calls once its lock is released. Leaf
// completions come back as an Outcome and are merged under the same lock.
//
// Two handler shapes cover the built-in kinds:
//
//   - Sequential walks the steps in order and stops at the first success
//     (OnlyLocal, OnlyRemote, FallbackLocalThenRemote, FallbackRemoteThenLocal).
//   - Race starts every step at once; the first success wins and failure
//     needs every step to fail (RaceLocalAndRemote).
//
// Handlers hold no per-operation state and may be shared by any number of
// proxies.
package policy
