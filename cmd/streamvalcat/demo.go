package main

import (
	"context"

	"github.com/filegrind/streamval-go/streamval"
)

// staticPromise is a Promise already settled at construction time, useful
// for demo values where the async boundary is a formality rather than real
// latency.
type staticPromise struct {
	value any
	err   error
}

func (p staticPromise) Await(ctx context.Context) (any, error) {
	return p.value, p.err
}

// countdownSequence yields n, n-1, ..., 1 and then returns "liftoff".
type countdownSequence struct {
	remaining int
}

func countdown(n int) *countdownSequence {
	return &countdownSequence{remaining: n}
}

func (s *countdownSequence) Next(ctx context.Context) (streamval.Result, error) {
	if s.remaining <= 0 {
		return streamval.Result{Kind: streamval.Return, Value: "liftoff"}, nil
	}
	v := s.remaining
	s.remaining--
	return streamval.Result{Kind: streamval.Yield, Value: float64(v)}, nil
}

func (s *countdownSequence) Cancel(ctx context.Context) error {
	s.remaining = 0
	return nil
}
