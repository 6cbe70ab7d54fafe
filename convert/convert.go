// Package convert provides core.Converter implementations that turn a leaf's
// raw value into a success/failure envelope.
package convert

import (
	"reflect"

	"github.com/hupe1980/rrouter/core"
)

// DefaultErrorMessage is used when a converter has nothing better to report.
const DefaultErrorMessage = "network data error"

// Response is a plain core.Envelope value.
type Response struct {
	OK  bool
	Msg string
}

// Success returns a successful envelope.
func Success() Response { return Response{OK: true} }

// Failure returns a failed envelope carrying msg.
func Failure(msg string) Response { return Response{Msg: msg} }

// Succeeded implements core.Envelope.
func (r Response) Succeeded() bool { return r.OK }

// Message implements core.Envelope.
func (r Response) Message() string { return r.Msg }

// Func adapts a function to core.Converter.
type Func func(raw any) core.Envelope

// Normalize implements core.Converter.
func (f Func) Normalize(raw any) core.Envelope { return f(raw) }

// Default returns the standard converter: a nil raw value (including a typed
// nil pointer, map, slice, channel, func or interface) fails with errMsg, a
// raw value that already implements core.Envelope is taken as is, and
// anything else succeeds. An empty errMsg selects DefaultErrorMessage.
func Default(errMsg string) core.Converter {
	if errMsg == "" {
		errMsg = DefaultErrorMessage
	}

	return Func(func(raw any) core.Envelope {
		if isNil(raw) {
			return Failure(errMsg)
		}

		if env, ok := raw.(core.Envelope); ok {
			return env
		}

		return Success()
	})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
