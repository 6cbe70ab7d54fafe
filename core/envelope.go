package core

// Envelope is the normalized view of a leaf's raw result.
type Envelope interface {
	Succeeded() bool
	Message() string
}

// Converter turns a raw leaf value into an Envelope. It is invoked once per
// leaf completion, before the active policy merges the result.
type Converter interface {
	Normalize(raw any) Envelope
}
