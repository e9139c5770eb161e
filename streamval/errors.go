package streamval

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProtocolMisuse is returned when a merge engine's output sequence is
// consumed a second time concurrently — a programmer error, not a data
// error.
var ErrProtocolMisuse = errors.New("streamval: sequence already being consumed")

// ErrStreamInterrupted is the synthetic error pushed into every still-open
// controller when the decoder's upstream frame source ends normally while
// controllers remain open (a malformed or truncated stream).
var ErrStreamInterrupted = errors.New("stream interrupted: malformed stream")

// CompositeError aggregates one or more causes raised while destroying a
// set of concurrent sources during cancellation.
type CompositeError struct {
	Causes []error
}

func (e *CompositeError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("streamval: %d cleanup error(s): %s", len(e.Causes), strings.Join(msgs, "; "))
}

func (e *CompositeError) Unwrap() []error { return e.Causes }

// InterruptedError wraps a non-error cause observed when the decoder's
// upstream frame source itself fails with a value that is not already an
// error (e.g. a transport returning a non-error sentinel).
type InterruptedError struct {
	Cause any
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("streamval: interrupted: %v", e.Cause)
}

// ProducerError wraps the cause carried by a terminal error body frame,
// re-thrown to the consumer of the corresponding async value.
type ProducerError struct {
	Cause any
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("streamval: producer error: %v", e.Cause)
}

// StructuralError reports a body frame that failed to parse or did not
// have the [id, status, payload] shape. Per the error-handling design this
// is treated the same as a transport error.
type StructuralError struct {
	Line string
	Err  error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("streamval: malformed frame %q: %v", e.Line, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }
