package streamval

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDecoder() *Decoder {
	return &Decoder{
		controllers: make(map[int64]*controller),
		closedIDs:   make(map[int64]struct{}),
		log:         slog.Default(),
	}
}

func TestControllerForDiscardsFramesForTerminatedID(t *testing.T) {
	d := newTestDecoder()

	c := d.controllerFor(1)
	require.Len(t, d.controllers, 1)

	// The consumer cancels early: its view tears down the controller.
	c.terminate()
	require.Len(t, d.controllers, 0)
	require.Contains(t, d.closedIDs, int64(1))

	// A body frame that was already in flight for id 1 arrives afterward.
	// It must resolve to a discarded sink, not resurrect a live, leaked
	// controller under the same id.
	late := d.controllerFor(1)
	require.Len(t, d.controllers, 0, "a late frame for a terminated id must not re-register a live controller")

	// Pushing into the discarded sink must be a harmless no-op.
	late.push(StatusYield, "stray")
	_, _, err := late.next(canceledContext(t))
	require.ErrorIs(t, err, context.Canceled)
}

// canceledContext returns a context that is already canceled, so a blocking
// controller.next call returns immediately instead of hanging forever on a
// discarded controller that will never receive anything.
func canceledContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestControllerForReusesLiveController(t *testing.T) {
	d := newTestDecoder()

	a := d.controllerFor(7)
	b := d.controllerFor(7)
	require.Same(t, a, b)
}
