package streamval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagedIteratorPullsToCompletion(t *testing.T) {
	seq := newSliceSequence("done", "a", "b")
	results := make(chan Result, 8)
	var it *managedIterator
	it = newManagedIterator(seq, func(r Result) {
		results <- r
		if r.Kind == Yield {
			it.pull(context.Background())
		}
	})

	it.pull(context.Background())

	var got []Result
	for len(got) < 3 {
		select {
		case r := <-results:
			got = append(got, r)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for managed iterator results")
		}
	}

	require.Equal(t, Yield, got[0].Kind)
	require.Equal(t, "a", got[0].Value)
	require.Equal(t, Yield, got[1].Kind)
	require.Equal(t, "b", got[1].Value)
	require.Equal(t, Return, got[2].Kind)
	require.Equal(t, "done", got[2].Value)
}

func TestManagedIteratorPullIsNoopWhilePending(t *testing.T) {
	seq := newBlockingSequence("a")
	resultCh := make(chan Result, 4)
	it := newManagedIterator(seq, func(r Result) { resultCh <- r })

	it.pull(context.Background())
	it.pull(context.Background()) // no-op: already pending

	close(seq.release)

	select {
	case r := <-resultCh:
		require.Equal(t, Yield, r.Kind)
		require.Equal(t, "a", r.Value)
	case <-time.After(time.Second):
		t.Fatal("expected exactly one result")
	}
	select {
	case r := <-resultCh:
		t.Fatalf("unexpected second result %+v from a single pull", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManagedIteratorDestroyCancelsSourceAndDropsCallback(t *testing.T) {
	seq := newSliceSequence("done", "a", "b")
	called := false
	it := newManagedIterator(seq, func(r Result) { called = true })

	require.NoError(t, it.destroy(context.Background()))
	require.True(t, seq.wasCanceled())

	it.pull(context.Background())
	time.Sleep(20 * time.Millisecond)
	require.False(t, called, "destroyed iterator must not invoke onResult")

	require.NoError(t, it.destroy(context.Background()), "destroy must be idempotent")
}
