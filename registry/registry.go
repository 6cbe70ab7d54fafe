// Package registry maps policy kinds to their handlers.
//
// A Map is immutable once built; additional bindings are layered with With
// during startup. A process-wide default can be installed exactly once and is
// used by every proxy that was not given an explicit registry.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/rrouter/policy"
)

var (
	// ErrEmptyRegistry is returned when a registry would hold no bindings.
	ErrEmptyRegistry = errors.New("registry: no handlers registered")
	// ErrNilHandler is returned when a binding has a nil handler.
	ErrNilHandler = errors.New("registry: nil handler")
)

// Registry resolves the handler for a policy kind.
type Registry interface {
	Resolve(kind policy.Kind) (policy.Handler, bool)
}

// Map is an immutable Registry backed by a map.
type Map struct {
	handlers map[policy.Kind]policy.Handler
}

// New builds a registry from handlers. The map is copied.
func New(handlers map[policy.Kind]policy.Handler) (*Map, error) {
	if len(handlers) == 0 {
		return nil, ErrEmptyRegistry
	}

	m := &Map{handlers: make(map[policy.Kind]policy.Handler, len(handlers))}

	for k, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("%w for kind %s", ErrNilHandler, k)
		}

		m.handlers[k] = h
	}

	return m, nil
}

// Builtin returns a registry holding the five built-in handlers.
func Builtin() *Map {
	m := &Map{handlers: make(map[policy.Kind]policy.Handler, len(policy.Kinds()))}

	for _, k := range policy.Kinds() {
		if h, err := policy.New(k); err == nil {
			m.handlers[k] = h
		}
	}

	return m
}

// Resolve implements Registry.
func (m *Map) Resolve(kind policy.Kind) (policy.Handler, bool) {
	if m == nil {
		return nil, false
	}

	h, ok := m.handlers[kind]

	return h, ok
}

// With returns a copy of m with kind bound to h.
func (m *Map) With(kind policy.Kind, h policy.Handler) (*Map, error) {
	if h == nil {
		return nil, fmt.Errorf("%w for kind %s", ErrNilHandler, kind)
	}

	handlers := make(map[policy.Kind]policy.Handler, len(m.handlers)+1)
	for k, v := range m.handlers {
		handlers[k] = v
	}

	handlers[kind] = h

	return &Map{handlers: handlers}, nil
}

// Kinds returns the registered kinds in ascending order.
func (m *Map) Kinds() []policy.Kind {
	kinds := make([]policy.Kind, 0, len(m.handlers))
	for k := range m.handlers {
		kinds = append(kinds, k)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}
