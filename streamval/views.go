package streamval

import (
	"context"
	"sync"
)

// promiseView is the revived consumer surface for a "Promise" placeholder:
// it drives its controller until exactly one terminal frame arrives, and
// every later Await returns that same outcome.
type promiseView struct {
	ctrl    *controller
	mu      sync.Mutex
	settled bool
	value   any
	err     error
}

func (p *promiseView) Await(ctx context.Context) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return p.value, p.err
	}
	p.settled = true
	status, val, err := p.ctrl.next(ctx)
	p.ctrl.terminate()
	if err != nil {
		p.err = err
	} else if status == StatusRejected {
		p.err = &ProducerError{Cause: val}
	} else {
		p.value = val
	}
	return p.value, p.err
}

// sequenceView is the revived consumer surface for an "AsyncIterable"
// placeholder.
type sequenceView struct {
	ctrl *controller
}

func (s *sequenceView) Next(ctx context.Context) (Result, error) {
	status, val, err := s.ctrl.next(ctx)
	if err != nil {
		s.ctrl.terminate()
		return Result{}, err
	}
	switch status {
	case StatusYield:
		return Result{Kind: Yield, Value: val}, nil
	case StatusReturn:
		s.ctrl.terminate()
		return Result{Kind: Return, Value: val}, nil
	default: // StatusError
		s.ctrl.terminate()
		return Result{Kind: Err, Err: &ProducerError{Cause: val}}, nil
	}
}

func (s *sequenceView) Cancel(ctx context.Context) error {
	s.ctrl.terminate()
	return nil
}

// pullStreamView is the revived consumer surface for a "ReadableStream"
// placeholder. The terminal frame's payload is intentionally discarded —
// per spec, pull-stream consumers only observe closure.
type pullStreamView struct {
	ctrl *controller
}

func (p *pullStreamView) Pull(ctx context.Context) (any, bool, error) {
	status, val, err := p.ctrl.next(ctx)
	if err != nil {
		p.ctrl.terminate()
		return nil, false, err
	}
	switch status {
	case StatusYield:
		return val, true, nil
	case StatusReturn:
		p.ctrl.terminate()
		return nil, false, nil
	default: // StatusError
		p.ctrl.terminate()
		return nil, false, &ProducerError{Cause: val}
	}
}

func (p *pullStreamView) Close(ctx context.Context) error {
	p.ctrl.terminate()
	return nil
}
