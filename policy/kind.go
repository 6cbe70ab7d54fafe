package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/rrouter/core"
)

// ErrUnknownKind is returned when a policy name or value has no built-in meaning.
var ErrUnknownKind = errors.New("policy: unknown kind")

// Kind selects a dispatch policy. The numeric values are stable and may be
// persisted.
type Kind int

const (
	// OnlyRemote dispatches the remote step only.
	OnlyRemote Kind = 0
	// FallbackLocalThenRemote tries local first and remote when local fails.
	FallbackLocalThenRemote Kind = 1
	// RaceLocalAndRemote runs local and remote concurrently.
	RaceLocalAndRemote Kind = 2
	// FallbackRemoteThenLocal tries remote first and local when remote fails.
	FallbackRemoteThenLocal Kind = 3
	// OnlyLocal dispatches the local step only.
	OnlyLocal Kind = 4
)

var kindNames = map[Kind]string{
	OnlyRemote:              "only_remote",
	FallbackLocalThenRemote: "fallback_local_then_remote",
	RaceLocalAndRemote:      "race_local_and_remote",
	FallbackRemoteThenLocal: "fallback_remote_then_local",
	OnlyLocal:               "only_local",
}

// Kinds returns all built-in kinds in numeric order.
func Kinds() []Kind {
	return []Kind{OnlyRemote, FallbackLocalThenRemote, RaceLocalAndRemote, FallbackRemoteThenLocal, OnlyLocal}
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is a built-in kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Steps returns the default step sequence of a built-in kind, or nil.
func (k Kind) Steps() []core.StepID {
	switch k {
	case OnlyRemote:
		return []core.StepID{core.StepRemote}
	case OnlyLocal:
		return []core.StepID{core.StepLocal}
	case FallbackLocalThenRemote, RaceLocalAndRemote:
		return []core.StepID{core.StepLocal, core.StepRemote}
	case FallbackRemoteThenLocal:
		return []core.StepID{core.StepRemote, core.StepLocal}
	default:
		return nil
	}
}

// ParseKind parses a kind name. Matching ignores case and accepts '-' in
// place of '_'.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")

	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}
