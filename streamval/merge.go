package streamval

import (
	"context"
	"sync"
)

type bufferedResult struct {
	iter   *managedIterator
	result Result
}

// MergeEngine multiplexes an open-ended, dynamically growing collection of
// AsyncSequence sources into a single AsyncSequence, preserving each
// source's own emission order while interleaving across sources in the
// order their underlying steps resolve.
//
// It is itself an AsyncSequence: Next drains interleaved yields (and the
// single fatal error, if one occurs), and Cancel tears down every still
// running source in parallel, aggregating cleanup failures.
type MergeEngine struct {
	mu        sync.Mutex
	iterating bool
	consuming bool
	queued    []AsyncSequence
	live      map[*managedIterator]struct{}
	buffer    []bufferedResult
	flush     chan struct{}
	// resource is the scope whose one composed cleanup step — destroying
	// every still-live source — runs exactly once, on whichever exit path
	// (internal exhaustion/error, or an explicit Cancel) reaches it first.
	resource *AsyncResource
}

// NewMergeEngine returns an empty merge engine.
func NewMergeEngine() *MergeEngine {
	e := &MergeEngine{
		live:  make(map[*managedIterator]struct{}),
		flush: make(chan struct{}, 1),
	}
	e.resource = NewAsyncResource()
	e.resource.Attach(e.destroyLiveSources)
	return e
}

// Add registers a new source. Before iteration begins sources are queued
// and started together on the first Next call; once iteration has begun,
// a newly added source is started immediately.
func (e *MergeEngine) Add(source AsyncSequence) {
	e.mu.Lock()
	if !e.iterating {
		e.queued = append(e.queued, source)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.start(source)
}

func (e *MergeEngine) start(source AsyncSequence) {
	var it *managedIterator
	it = newManagedIterator(source, func(r Result) {
		e.onResult(it, r)
	})
	e.mu.Lock()
	e.live[it] = struct{}{}
	e.mu.Unlock()
	it.pull(context.Background())
}

func (e *MergeEngine) onResult(it *managedIterator, r Result) {
	e.mu.Lock()
	switch r.Kind {
	case Yield, Err:
		e.buffer = append(e.buffer, bufferedResult{iter: it, result: r})
	}
	if r.Kind != Yield {
		delete(e.live, it)
	}
	e.mu.Unlock()
	e.signalFlush()
}

func (e *MergeEngine) signalFlush() {
	select {
	case e.flush <- struct{}{}:
	default:
	}
}

// Next implements AsyncSequence. A second concurrent call while one is
// already in flight is a protocol misuse error.
func (e *MergeEngine) Next(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.consuming {
		e.mu.Unlock()
		return Result{}, ErrProtocolMisuse
	}
	e.consuming = true
	if !e.iterating {
		e.iterating = true
		queued := e.queued
		e.queued = nil
		e.mu.Unlock()
		for _, src := range queued {
			e.start(src)
		}
	} else {
		e.mu.Unlock()
	}

	defer func() {
		e.mu.Lock()
		e.consuming = false
		e.mu.Unlock()
	}()

	for {
		e.mu.Lock()
		if len(e.buffer) > 0 {
			item := e.buffer[0]
			e.buffer = e.buffer[1:]
			e.mu.Unlock()

			if item.result.Kind == Yield {
				item.iter.pull(ctx)
				return Result{Kind: Yield, Value: item.result.Value}, nil
			}
			// A fatal framework-level error (not a per-id producer error,
			// which callers encode as a normal yielded frame): tear down
			// every remaining source, suppressing further cleanup errors
			// since no explicit canceller is present to report them to.
			e.teardown(ctx, false)
			return Result{}, item.result.Err
		}
		if len(e.live) == 0 {
			e.mu.Unlock()
			return Result{Kind: Return}, nil
		}
		e.mu.Unlock()

		select {
		case <-e.flush:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

// Cancel destroys every still-running source in parallel and reports an
// aggregated CompositeError if any cleanup failed — the early-consumer-
// break exit path.
func (e *MergeEngine) Cancel(ctx context.Context) error {
	return e.teardown(ctx, true)
}

// destroyLiveSources is the engine's single cleanup step, attached to
// e.resource in NewMergeEngine: it destroys every still-live source in
// parallel and aggregates their failures. AsyncResource.Release guarantees
// this runs at most once regardless of which exit path — internal
// exhaustion/error or an explicit external Cancel — reaches teardown first.
func (e *MergeEngine) destroyLiveSources(ctx context.Context) error {
	e.mu.Lock()
	live := make([]*managedIterator, 0, len(e.live))
	for it := range e.live {
		live = append(live, it)
	}
	e.live = make(map[*managedIterator]struct{})
	e.buffer = nil
	e.mu.Unlock()
	// Wake any Next call currently blocked waiting for flush: with live now
	// empty it will observe exhaustion and return instead of hanging.
	e.signalFlush()

	if len(live) == 0 {
		return nil
	}

	errs := make([]error, len(live))
	var wg sync.WaitGroup
	for i, it := range live {
		wg.Add(1)
		go func(i int, it *managedIterator) {
			defer wg.Done()
			errs[i] = it.destroy(ctx)
		}(i, it)
	}
	wg.Wait()

	var causes []error
	for _, err := range errs {
		if err != nil {
			causes = append(causes, err)
		}
	}
	if len(causes) == 0 {
		return nil
	}
	return &CompositeError{Causes: causes}
}

func (e *MergeEngine) teardown(ctx context.Context, report bool) error {
	err := e.resource.Release(ctx)
	if !report {
		return nil
	}
	return err
}
