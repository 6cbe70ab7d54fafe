package convert

import (
	"encoding/json"
	"slices"

	"github.com/hupe1980/rrouter/core"
	"github.com/tidwall/gjson"
)

// JSONOptions configures the wire envelope converter.
type JSONOptions struct {
	// StatusPath is the gjson path of the status code. Default "code".
	StatusPath string
	// SuccessCodes lists status values that count as success. Default ["200"].
	SuccessCodes []string
	// MessagePath is the gjson path of the failure message. Default "message".
	MessagePath string
	// ErrorMessage is used when the payload carries no message or cannot be
	// parsed. Default DefaultErrorMessage.
	ErrorMessage string
}

// JSON returns a converter for raw values shaped like
// {"code": 200, "message": "...", "data": ...}.
//
// Accepted raw types are []byte, string and json.RawMessage. Values that
// already implement core.Envelope pass through; any other value is treated
// the same way Default treats it.
func JSON(optFns ...func(o *JSONOptions)) core.Converter {
	opts := JSONOptions{
		StatusPath:   "code",
		SuccessCodes: []string{"200"},
		MessagePath:  "message",
		ErrorMessage: DefaultErrorMessage,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	fallback := Default(opts.ErrorMessage)

	return Func(func(raw any) core.Envelope {
		var payload []byte

		switch v := raw.(type) {
		case []byte:
			payload = v
		case json.RawMessage:
			payload = v
		case string:
			payload = []byte(v)
		default:
			return fallback.Normalize(raw)
		}

		if !gjson.ValidBytes(payload) {
			return Failure(opts.ErrorMessage)
		}

		status := gjson.GetBytes(payload, opts.StatusPath)
		if status.Exists() && slices.Contains(opts.SuccessCodes, status.String()) {
			return Success()
		}

		msg := gjson.GetBytes(payload, opts.MessagePath).String()
		if msg == "" {
			msg = opts.ErrorMessage
		}

		return Failure(msg)
	})
}
