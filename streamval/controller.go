package streamval

import (
	"context"
	"sync"
)

// chunk is one entry in a controller's FIFO buffer: either a settled
// (status, value) pair, or — when err is non-nil — an error sentinel that
// terminates the controller's view the moment it is drained.
type chunk struct {
	status Status
	value  any
	err    error
}

// controller owns the FIFO buffer and wake signal for one chunk-stream
// id on the decode side. It is created on demand, either by a built-in
// reviver opening its demux view or by the dispatcher receiving the id's
// first frame — whichever comes first — and removed when its view
// terminates.
type controller struct {
	mu      sync.Mutex
	buffer  []chunk
	wake    chan struct{}
	closed  bool
	onClose func()
}

func newController(onClose func()) *controller {
	return &controller{wake: make(chan struct{}, 1), onClose: onClose}
}

// newDiscardedController returns a controller that is already closed: push
// and pushError are no-ops on it. The decoder hands this out in place of a
// live controller for an id whose view has already terminated, so a
// late-arriving frame for that id is discarded rather than resurrecting a
// controller nothing will ever drain.
func newDiscardedController() *controller {
	return &controller{wake: make(chan struct{}, 1), closed: true}
}

// push enqueues a settled frame. A no-op once the controller is closed —
// a frame arriving after its consumer has walked away is harmlessly
// discarded, per the decoder's cancellation semantics.
func (c *controller) push(status Status, value any) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.buffer = append(c.buffer, chunk{status: status, value: value})
	c.mu.Unlock()
	c.signal()
}

// pushError enqueues an error sentinel (transport failure or structural
// error), terminal for the view once drained.
func (c *controller) pushError(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.buffer = append(c.buffer, chunk{err: err})
	c.mu.Unlock()
	c.signal()
}

func (c *controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// next blocks until one buffered entry is available, then returns it.
func (c *controller) next(ctx context.Context) (Status, any, error) {
	for {
		c.mu.Lock()
		if len(c.buffer) > 0 {
			item := c.buffer[0]
			c.buffer = c.buffer[1:]
			c.mu.Unlock()
			if item.err != nil {
				return 0, nil, item.err
			}
			return item.status, item.value, nil
		}
		c.mu.Unlock()

		select {
		case <-c.wake:
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		}
	}
}

// terminate removes the controller from its owning decoder's id map.
// Safe to call more than once.
func (c *controller) terminate() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if c.onClose != nil {
		c.onClose()
	}
}
