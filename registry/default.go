package registry

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrAlreadyInstalled is returned by every Install after the first.
	ErrAlreadyInstalled = errors.New("registry: default already installed")
	// ErrNotInstalled is returned by Default before Install.
	ErrNotInstalled = errors.New("registry: default not installed")
	// ErrNilRegistry is returned by Install for a nil registry.
	ErrNilRegistry = errors.New("registry: nil registry")
)

type holder struct{ r Registry }

var installed atomic.Pointer[holder]

// Install sets the process-wide default registry. Only the first call
// succeeds, including under concurrent callers.
func Install(r Registry) error {
	if r == nil {
		return ErrNilRegistry
	}

	if !installed.CompareAndSwap(nil, &holder{r: r}) {
		return ErrAlreadyInstalled
	}

	return nil
}

// Default returns the installed registry.
func Default() (Registry, error) {
	h := installed.Load()
	if h == nil {
		return nil, ErrNotInstalled
	}

	return h.r, nil
}
