package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/adapters/memory"
	"github.com/noteq/noteq/pkg/cache"
	"github.com/noteq/noteq/pkg/core"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestTTL_Expiry(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := cache.New[string]("notes", 30*time.Second, cache.WithClock(clk.Now))

	require.NoError(t, c.Set(ctx, "k", "v"))

	v, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clk.Advance(29 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.True(t, ok, "entry younger than ttl must hit")

	clk.Advance(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry aged exactly ttl must miss")

	stale, _, ok := c.Peek(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", stale)
}

func TestTTL_FetchCachesResult(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := cache.New[int]("familiarity", 30*time.Second, cache.WithClock(clk.Now))

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, calls)

	clk.Advance(31 * time.Second)
	v, err = c.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "stale entry must be reloaded")
}

func TestTTL_FetchDeduplicatesConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	c := cache.New[string]("notes", time.Minute)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "payload", nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(ctx, "same", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "payload", r)
	}
}

func TestTTL_FetchBroadcastsFailure(t *testing.T) {
	ctx := context.Background()
	c := cache.New[string]("notes", time.Minute)

	boom := errors.New("backend down")
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "", boom
	}

	const callers = 5
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := c.Fetch(ctx, "k", load)
			errs <- err
		}()
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, boom)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter did not receive the failure")
		}
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, c.Len(), "failures must not be cached")
}

func TestTTL_FetchWaiterHonoursOwnContext(t *testing.T) {
	c := cache.New[string]("notes", time.Minute)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "k", func(ctx context.Context) (string, error) {
			<-release
			return "late", nil
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter kept blocking")
	}
}

func TestTTL_InvalidateAndClear(t *testing.T) {
	ctx := context.Background()
	c := cache.New[string]("notes", time.Minute)

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "b", "2"))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Invalidate(ctx, "a"))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestTTL_InvalidateDuringLoadIsNotCached(t *testing.T) {
	for _, drop := range []struct {
		name string
		fn   func(ctx context.Context, c *cache.TTL[string]) error
	}{
		{"invalidate", func(ctx context.Context, c *cache.TTL[string]) error { return c.Invalidate(ctx, "k") }},
		{"clear", func(ctx context.Context, c *cache.TTL[string]) error { return c.Clear(ctx) }},
	} {
		t.Run(drop.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			c := cache.New[string]("notes", time.Minute, cache.WithClock(newClock().Now), cache.WithStore(store, "c:"))

			started := make(chan struct{})
			release := make(chan struct{})
			result := make(chan string, 1)
			go func() {
				v, err := c.Fetch(ctx, "k", func(context.Context) (string, error) {
					close(started)
					<-release
					return "before-change", nil
				})
				assert.NoError(t, err)
				result <- v
			}()

			<-started
			require.NoError(t, drop.fn(ctx, c))
			close(release)
			assert.Equal(t, "before-change", <-result, "waiters still get the loaded value")

			_, ok := c.Get(ctx, "k")
			assert.False(t, ok)
			_, ok, err := store.Get(ctx, "c:k")
			require.NoError(t, err)
			assert.False(t, ok, "nothing persisted")

			v, err := c.Fetch(ctx, "k", func(context.Context) (string, error) { return "after-change", nil })
			require.NoError(t, err)
			assert.Equal(t, "after-change", v)
			v, ok = c.Get(ctx, "k")
			assert.True(t, ok)
			assert.Equal(t, "after-change", v)
		})
	}
}

func TestTTL_RefreshKeepsEntryOnFailure(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	c := cache.New[string]("familiarity", 30*time.Second, cache.WithClock(clk.Now))
	require.NoError(t, c.Set(ctx, "k", "old"))

	var calls atomic.Int32
	v, err := c.Refresh(ctx, "k", func(context.Context) (string, error) {
		calls.Add(1)
		return "new", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.EqualValues(t, 1, calls.Load(), "fresh entries do not short-circuit a refresh")

	clk.Advance(time.Minute)
	_, err = c.Refresh(ctx, "k", func(context.Context) (string, error) {
		return "", errors.New("backend down")
	})
	require.Error(t, err)

	stale, _, ok := c.Peek(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "new", stale)
}

func TestTTL_PersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	store := memory.New()

	first := cache.New[core.UserProfile]("profile", 5*time.Minute, cache.WithClock(clk.Now), cache.WithStore(store, ""))
	profile := core.UserProfile{Name: "ada", Email: "ada@example.com", RegisterDate: "2024-01-01"}
	require.NoError(t, first.Set(ctx, core.KeyProfileCache, profile))

	raw, ok, err := store.Get(ctx, core.KeyProfileCache)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"data"`)
	assert.Contains(t, raw, `"timestamp"`)

	// A second cache over the same store simulates a restart.
	second := cache.New[core.UserProfile]("profile", 5*time.Minute, cache.WithClock(clk.Now), cache.WithStore(store, ""))
	got, ok := second.Get(ctx, core.KeyProfileCache)
	require.True(t, ok)
	assert.Equal(t, profile, got)

	clk.Advance(5 * time.Minute)
	third := cache.New[core.UserProfile]("profile", 5*time.Minute, cache.WithClock(clk.Now), cache.WithStore(store, ""))
	_, ok = third.Get(ctx, core.KeyProfileCache)
	assert.False(t, ok)

	require.NoError(t, third.Invalidate(ctx, core.KeyProfileCache))
	_, ok, err = store.Get(ctx, core.KeyProfileCache)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTTL_ObserverAndState(t *testing.T) {
	ctx := context.Background()
	var hits, misses int
	c := cache.New[int]("notes", time.Minute, cache.WithObserver(func(name string, hit bool) {
		assert.Equal(t, "notes", name)
		if hit {
			hits++
		} else {
			misses++
		}
	}))

	_, _ = c.Get(ctx, "k")
	require.NoError(t, c.Set(ctx, "k", 1))
	_, _ = c.Get(ctx, "k")

	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	stats, ok := c.State().(cache.Stats)
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, "cache", c.ComponentType())
}
