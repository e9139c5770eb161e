package streamval

import "context"

// AsyncResource attaches a cleanup step to a scope such that the cleanup
// runs once when the scope exits, composing with any cleanup already
// attached (the new hook runs before the existing one). The merge engine
// uses this to guarantee cascading cancellation of child iterators
// regardless of which exit path (normal, error, or early break) is taken.
type AsyncResource struct {
	cleanup func(ctx context.Context) error
}

// NewAsyncResource returns a resource with no cleanup attached yet.
func NewAsyncResource() *AsyncResource {
	return &AsyncResource{}
}

// Attach composes fn in front of any cleanup already registered.
func (r *AsyncResource) Attach(fn func(ctx context.Context) error) {
	if r.cleanup == nil {
		r.cleanup = fn
		return
	}
	prev := r.cleanup
	r.cleanup = func(ctx context.Context) error {
		var causes []error
		if err := fn(ctx); err != nil {
			causes = append(causes, err)
		}
		if err := prev(ctx); err != nil {
			causes = append(causes, err)
		}
		if len(causes) == 0 {
			return nil
		}
		if len(causes) == 1 {
			return causes[0]
		}
		return &CompositeError{Causes: causes}
	}
}

// Release runs the composed cleanup exactly once. Safe to call on a
// resource with no cleanup attached.
func (r *AsyncResource) Release(ctx context.Context) error {
	if r.cleanup == nil {
		return nil
	}
	cleanup := r.cleanup
	r.cleanup = nil
	return cleanup(ctx)
}
