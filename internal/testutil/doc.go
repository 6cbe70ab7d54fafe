// Package testutil contains fake leaf strategies, recording callbacks and a
// sample request card used across tests to drive proxies deterministically.
// The helpers are intentionally minimal. They are not intended for
// production usage.
package testutil
