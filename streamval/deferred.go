package streamval

import (
	"context"
	"sync"
)

// Deferred is a one-shot resolvable signal: Resolve and Reject are
// single-shot and safe to call before any observer attaches, mirroring the
// spec's single-threaded-cooperative Deferred but backed by a real mutex
// and a close-once channel, since Go's goroutines give no such guarantee
// for free.
//
// It also serves as the rejection sink the spec asks the encoder/decoder
// to attach to every promise-like they observe (§9, §4.4, §4.5): Go has no
// ambient "unhandled rejection" reporting, and Promise.Await always
// requires an explicit call, so that rule is satisfied trivially by this
// type's normal use — no separate hook is implemented.
type Deferred struct {
	mu      sync.Mutex
	done    chan struct{}
	value   any
	err     error
	settled bool
}

// NewDeferred creates a pending Deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve fulfills the deferred with v. Calls after the first are no-ops.
func (d *Deferred) Resolve(v any) {
	d.settle(v, nil)
}

// Reject fails the deferred with err. Calls after the first are no-ops.
func (d *Deferred) Reject(err error) {
	d.settle(nil, err)
}

func (d *Deferred) settle(v any, err error) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.value, d.err = v, err
	d.mu.Unlock()
	close(d.done)
}

// Wait blocks until the deferred settles or ctx is done.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await implements Promise.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	return d.Wait(ctx)
}
