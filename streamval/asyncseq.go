package streamval

import "context"

// ResultKind discriminates the three shapes a single step of an
// AsyncSequence can resolve to.
type ResultKind int

const (
	// Yield carries one produced item; more may follow.
	Yield ResultKind = iota
	// Return is terminal and carries the sequence's final return value.
	Return
	// Err is terminal and carries the cause the sequence threw.
	Err
)

// Result is the outcome of one AsyncSequence.Next call.
type Result struct {
	Kind  ResultKind
	Value any
	Err   error
}

// AsyncSequence is a pull-driven, possibly-infinite iterator with a
// terminal return value or error — the Go rendering of the spec's
// asynchronous sequence.
type AsyncSequence interface {
	// Next advances the sequence by one step. Implementations must not be
	// called concurrently with themselves on the same value.
	Next(ctx context.Context) (Result, error)
	// Cancel is the cooperative cancellation hook invoked when a consumer
	// abandons the sequence before it reaches a terminal step. It is
	// idempotent.
	Cancel(ctx context.Context) error
}

// Promise is a one-shot asynchronous result, fulfilled or rejected exactly
// once.
type Promise interface {
	// Await blocks until the promise settles, returning its fulfilled
	// value or the rejection cause as an error.
	Await(ctx context.Context) (any, error)
}

// PullStream is wire-compatible with AsyncSequence but is revived as a
// pull-based reader: callers ask for one value at a time and must call
// Close when done.
type PullStream interface {
	// Pull returns the next value, or ok=false when the stream has ended
	// (its terminal payload, if any, is not exposed — see spec scenario 5).
	Pull(ctx context.Context) (value any, ok bool, err error)
	// Close releases the stream's resources. Idempotent.
	Close(ctx context.Context) error
}
