package fs

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/core"
)

// A watcher that dies is replaced by the supervisor and the replacement keeps
// reporting changes written by another process.
func TestWatchWorker_RestartedBySupervisor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	store := New(Config{Dir: dir})
	require.NoError(t, store.Set(ctx, core.KeyToken, "t1"))

	events := make(chan core.StoreEvent, 8)
	workers := make(chan *watchWorker, 2)

	sup := supervisor.New("local-state", supervisor.StrategyOneForOne, supervisor.Spec{
		Name: "state-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(store, events)
			workers <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	})
	require.NoError(t, sup.Start(ctx))

	first := nextWorker(t, workers)
	waitForWatcher(t, store, true)

	// Closing the fsnotify watcher ends the loop with an error.
	require.NoError(t, first.watcher.Close())

	second := nextWorker(t, workers)
	assert.NotSame(t, first, second)
	waitForWatcher(t, store, true)

	other := New(Config{Dir: dir})
	require.NoError(t, other.Set(ctx, core.KeyUserID, "42"))

	select {
	case ev := <-events:
		assert.Equal(t, core.KeyUserID, ev.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported after restart")
	}
	v, ok, err := store.Get(ctx, core.KeyUserID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, sup.Stop(stopCtx))
}

func nextWorker(t *testing.T, ch <-chan *watchWorker) *watchWorker {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not create a watcher")
		return nil
	}
}

func waitForWatcher(t *testing.T, store *Store, active bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		state, ok := store.State().(StoreState)
		return ok && state.WatcherActive == active
	}, 2*time.Second, 10*time.Millisecond, "watcher active = %v", active)
}
