package streamval

import (
	"context"
	"sync"
)

type iteratorState int

const (
	iterIdle iteratorState = iota
	iterPending
	iterDone
)

// managedIterator wraps one AsyncSequence into a pull-driven machine with
// states {idle, pending, done}, a push-style result callback, and an
// idempotent cancel — the merge engine's unit of registration.
//
// At most one pull is ever in flight per managedIterator; onResult fires
// exactly zero or one time per pull.
type managedIterator struct {
	mu       sync.Mutex
	source   AsyncSequence
	state    iteratorState
	onResult func(Result)
}

func newManagedIterator(source AsyncSequence, onResult func(Result)) *managedIterator {
	return &managedIterator{source: source, onResult: onResult}
}

// pull is a no-op unless the iterator is idle. It steps the source in its
// own goroutine and delivers the outcome to onResult once settled.
func (m *managedIterator) pull(ctx context.Context) {
	m.mu.Lock()
	if m.state != iterIdle {
		m.mu.Unlock()
		return
	}
	m.state = iterPending
	m.mu.Unlock()

	go func() {
		res, err := m.source.Next(ctx)
		if err != nil {
			res = Result{Kind: Err, Err: err}
		}

		m.mu.Lock()
		if m.state == iterDone {
			m.mu.Unlock()
			return
		}
		if res.Kind == Yield {
			m.state = iterIdle
		} else {
			m.state = iterDone
		}
		cb := m.onResult
		m.mu.Unlock()

		if cb != nil {
			cb(res)
		}
	}()
}

// destroy marks the iterator done, drops the callback, and best-effort
// cancels the source. Safe to call more than once.
func (m *managedIterator) destroy(ctx context.Context) error {
	m.mu.Lock()
	if m.state == iterDone {
		m.mu.Unlock()
		return nil
	}
	m.state = iterDone
	m.onResult = nil
	m.mu.Unlock()
	return m.source.Cancel(ctx)
}
