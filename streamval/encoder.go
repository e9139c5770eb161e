package streamval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/filegrind/streamval-go/wire"
)

// Encoder walks a root value through the base codec with additional
// asynchronous reducers, assigning each async value it discovers a fresh
// chunk-stream id and registering it as a producer with a MergeEngine.
type Encoder struct {
	opts   EncodeOptions
	merge  *MergeEngine
	nextID int64
	log    *slog.Logger
}

// Encode produces an async sequence of newline-terminated text frames: one
// header frame followed by the interleaved body frames of every
// asynchronous value discovered while walking root.
func Encode(ctx context.Context, root any, opts EncodeOptions) (AsyncSequence, error) {
	enc := &Encoder{
		opts:  opts,
		merge: NewMergeEngine(),
		log:   slog.Default().With("component", "streamval.encoder", "session", uuid.NewString()),
	}

	headerParts, err := wire.Flatten(root, enc.reducers())
	if err != nil {
		return nil, fmt.Errorf("streamval: encode header: %w", err)
	}
	headerLine, err := marshalHeaderFrame(headerParts)
	if err != nil {
		return nil, fmt.Errorf("streamval: marshal header: %w", err)
	}
	enc.log.Debug("header encoded", "bytes", len(headerLine))

	return &encoderOutput{enc: enc, header: append(headerLine, '\n')}, nil
}

// reducers composes the user reducer map with the three built-in async
// reducers, tried after the user's so a user reducer may shadow a
// built-in kind test.
func (e *Encoder) reducers() []Reducer {
	builtins := []Reducer{
		{Name: NamePromise, Match: e.matchPromise},
		{Name: NameAsyncSequence, Match: e.matchAsyncSequence},
		{Name: NamePullStream, Match: e.matchPullStream},
	}
	return append(append([]Reducer{}, e.opts.Reducers...), builtins...)
}

func (e *Encoder) allocID() int64 {
	return atomic.AddInt64(&e.nextID, 1)
}

func (e *Encoder) matchPromise(v any) (any, bool) {
	p, ok := v.(Promise)
	if !ok {
		return nil, false
	}
	id := e.allocID()
	e.merge.Add(&promiseProducer{id: id, p: p, enc: e})
	return id, true
}

func (e *Encoder) matchAsyncSequence(v any) (any, bool) {
	seq, ok := v.(AsyncSequence)
	if !ok {
		return nil, false
	}
	id := e.allocID()
	e.merge.Add(&sequenceProducer{id: id, seq: seq, enc: e})
	return id, true
}

func (e *Encoder) matchPullStream(v any) (any, bool) {
	s, ok := v.(PullStream)
	if !ok {
		return nil, false
	}
	id := e.allocID()
	e.merge.Add(&pullStreamProducer{id: id, s: s, enc: e})
	return id, true
}

// encodeValue flattens v with the session's composed reducer map.
func (e *Encoder) encodeValue(v any) ([]json.RawMessage, error) {
	return wire.Flatten(v, e.reducers())
}

// safeEncodeCause implements safe(cause): encode cause, falling back to
// CoerceError's result if encoding fails and a coercer is configured. If
// neither succeeds, the encoding error propagates and tears down the
// session.
func (e *Encoder) safeEncodeCause(cause error) ([]json.RawMessage, error) {
	causeValue := causeOf(cause)
	parts, err := e.encodeValue(causeValue)
	if err == nil {
		return parts, nil
	}
	if e.opts.CoerceError == nil {
		return nil, err
	}
	coerced := e.opts.CoerceError(cause)
	parts, coerceErr := e.encodeValue(coerced)
	if coerceErr != nil {
		return nil, coerceErr
	}
	return parts, nil
}

// causeOf unwraps a *ProducerError to its carried cause, so custom error
// payloads reach the reducer map as the value they actually are rather
// than as an opaque error.
func causeOf(err error) any {
	if pe, ok := err.(*ProducerError); ok {
		return pe.Cause
	}
	return err
}

// encoderOutput is the AsyncSequence Encode returns: one synthetic first
// step yielding the header line, then delegation to the merge engine for
// body frames.
type encoderOutput struct {
	enc        *Encoder
	header     []byte
	headerSent bool
}

func (o *encoderOutput) Next(ctx context.Context) (Result, error) {
	if !o.headerSent {
		o.headerSent = true
		return Result{Kind: Yield, Value: o.header}, nil
	}
	res, err := o.enc.merge.Next(ctx)
	if err != nil {
		return Result{}, err
	}
	if res.Kind != Yield {
		return res, nil
	}
	line := append(res.Value.([]byte), '\n')
	return Result{Kind: Yield, Value: line}, nil
}

func (o *encoderOutput) Cancel(ctx context.Context) error {
	return o.enc.merge.Cancel(ctx)
}
