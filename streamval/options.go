package streamval

import "github.com/filegrind/streamval-go/wire"

// Reducer and Reviver are the base codec's extension point, reused
// verbatim: reducers extract a wire-representable payload from
// user-defined kinds; revivers rebuild a value from a matching reducer's
// payload.
type Reducer = wire.Reducer
type Reviver = wire.Reviver

// AsyncKind names one of the three built-in asynchronous kinds, carried
// implicitly by a reducer/reviver name on the wire.
type AsyncKind int

const (
	KindPromise AsyncKind = iota
	KindAsyncSequence
	KindPullStream
)

// Built-in kind identifiers, reserved on both sides of the wire.
const (
	NamePromise       = "Promise"
	NameAsyncSequence = "AsyncIterable"
	NamePullStream    = "ReadableStream"
)

// Status is a small non-negative integer whose meaning is namespaced by
// AsyncKind.
type Status int

const (
	// Promise statuses.
	StatusFulfilled Status = 0
	StatusRejected  Status = 1

	// Async-sequence / pull-stream statuses.
	StatusYield  Status = 0
	StatusError  Status = 1
	StatusReturn Status = 2
)

// EncodeOptions configures Encode.
type EncodeOptions struct {
	// Reducers are tried, in the order given, ahead of the three built-in
	// async reducers, so a user reducer may shadow a built-in kind test.
	Reducers []Reducer
	// CoerceError salvages a producer error cause that the current reducer
	// map cannot encode (scenario 4 in spec's testable properties).
	CoerceError func(cause error) any
}

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// Revivers are tried, in order, ahead of the three built-in async
	// revivers.
	Revivers []Reviver
	// StrictValidation runs each raw body-frame line through a JSON schema
	// check of the [id, status, payload] shape before structural parsing.
	// A failing line is reported as a StructuralError; unlike the plain
	// parser, the check also rejects frames with more than three elements.
	StrictValidation bool
	// MaxLineBytes caps a single frame line's size when decoding from a raw
	// transport via DecodeTransport. Zero means unbounded.
	MaxLineBytes int
}
