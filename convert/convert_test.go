package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type token struct{ value string }

func TestDefault(t *testing.T) {
	conv := Default("")

	var nilToken *token
	var nilMap map[string]string

	tests := []struct {
		name string
		raw  any
		ok   bool
		msg  string
	}{
		{"nil", nil, false, DefaultErrorMessage},
		{"typed nil pointer", nilToken, false, DefaultErrorMessage},
		{"typed nil map", nilMap, false, DefaultErrorMessage},
		{"value", "token-1", true, ""},
		{"zero value", 0, true, ""},
		{"pointer", &token{value: "x"}, true, ""},
		{"envelope success", Success(), true, ""},
		{"envelope failure", Failure("bad creds"), false, "bad creds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := conv.Normalize(tt.raw)
			assert.Equal(t, tt.ok, env.Succeeded())
			assert.Equal(t, tt.msg, env.Message())
		})
	}
}

func TestDefault_CustomMessage(t *testing.T) {
	env := Default("no data").Normalize(nil)
	assert.False(t, env.Succeeded())
	assert.Equal(t, "no data", env.Message())
}

func TestJSON(t *testing.T) {
	conv := JSON()

	tests := []struct {
		name string
		raw  any
		ok   bool
		msg  string
	}{
		{"bytes success", []byte(`{"code":200,"data":{"token":"t"}}`), true, ""},
		{"string success", `{"code":"200"}`, true, ""},
		{"raw message failure", json.RawMessage(`{"code":401,"message":"bad creds"}`), false, "bad creds"},
		{"missing code", `{"message":"who knows"}`, false, "who knows"},
		{"failure without message", `{"code":500}`, false, DefaultErrorMessage},
		{"invalid json", `{"code":`, false, DefaultErrorMessage},
		{"non wire value", 42, true, ""},
		{"nil", nil, false, DefaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := conv.Normalize(tt.raw)
			assert.Equal(t, tt.ok, env.Succeeded())
			assert.Equal(t, tt.msg, env.Message())
		})
	}
}

func TestJSON_Options(t *testing.T) {
	conv := JSON(func(o *JSONOptions) {
		o.StatusPath = "meta.status"
		o.SuccessCodes = []string{"ok", "cached"}
		o.MessagePath = "meta.error.text"
		o.ErrorMessage = "login failed"
	})

	assert.True(t, conv.Normalize(`{"meta":{"status":"cached"}}`).Succeeded())

	env := conv.Normalize(`{"meta":{"status":"denied","error":{"text":"locked"}}}`)
	assert.False(t, env.Succeeded())
	assert.Equal(t, "locked", env.Message())

	assert.Equal(t, "login failed", conv.Normalize(`{"meta":{}}`).Message())
}
