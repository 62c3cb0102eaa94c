package optimistic_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/optimistic"
)

type note struct {
	ID    int64
	Title string
}

func appendNote(n note) func([]note) []note {
	return func(items []note) []note { return append(items, n) }
}

func removeTitle(title string) func([]note) []note {
	return func(items []note) []note {
		out := items[:0]
		for _, it := range items {
			if it.Title != title {
				out = append(out, it)
			}
		}
		return out
	}
}

type failures struct {
	mu    sync.Mutex
	names []string
}

func (f *failures) handle(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
}

func TestMutate_AppliesImmediately(t *testing.T) {
	l := optimistic.NewList([]note{{ID: 1, Title: "a"}})
	release := make(chan struct{})

	p := l.Mutate(context.Background(), optimistic.Mutation[note]{
		Name:   "add",
		Apply:  appendNote(note{Title: "b"}),
		Commit: func(ctx context.Context) error { <-release; return nil },
	})

	assert.Len(t, l.Items(), 2, "change must be visible before the commit returns")
	close(release)
	require.NoError(t, p.Wait())
	assert.Len(t, l.Items(), 2)
}

func TestMutate_MergeAfterSuccess(t *testing.T) {
	l := optimistic.NewList[note](nil)
	var assigned int64

	p := l.Mutate(context.Background(), optimistic.Mutation[note]{
		Name:  "add",
		Apply: appendNote(note{ID: -1, Title: "draft"}),
		Commit: func(ctx context.Context) error {
			assigned = 42
			return nil
		},
		Merge: func(items []note) []note {
			for i := range items {
				if items[i].ID == -1 {
					items[i].ID = assigned
				}
			}
			return items
		},
	})
	require.NoError(t, p.Wait())
	assert.Equal(t, []note{{ID: 42, Title: "draft"}}, l.Items())
}

func TestMutate_FailureRestoresSnapshot(t *testing.T) {
	initial := []note{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	f := &failures{}
	l := optimistic.NewList(initial, optimistic.WithFailureHandler(f.handle))
	boom := errors.New("offline")

	p := l.Mutate(context.Background(), optimistic.Mutation[note]{
		Name:   "delete",
		Apply:  removeTitle("a"),
		Commit: func(ctx context.Context) error { return boom },
	})
	require.ErrorIs(t, p.Wait(), boom)

	assert.Equal(t, initial, l.Items())
	assert.Equal(t, []string{"delete"}, f.names)
}

func TestMutate_FailureKeepsLaterMutations(t *testing.T) {
	l := optimistic.NewList([]note{{ID: 1, Title: "a"}})
	releaseFirst := make(chan struct{})

	first := l.Mutate(context.Background(), optimistic.Mutation[note]{
		Name:     "add-b",
		Apply:    appendNote(note{ID: 2, Title: "b"}),
		Rollback: removeTitle("b"),
		Commit: func(ctx context.Context) error {
			<-releaseFirst
			return errors.New("rejected")
		},
	})
	second := l.Mutate(context.Background(), optimistic.Mutation[note]{
		Name:   "add-c",
		Apply:  appendNote(note{ID: 3, Title: "c"}),
		Commit: func(ctx context.Context) error { return nil },
	})
	require.NoError(t, second.Wait())

	close(releaseFirst)
	require.Error(t, first.Wait())

	assert.Equal(t, []note{{ID: 1, Title: "a"}, {ID: 3, Title: "c"}}, l.Items())
}

func TestList_WaitAndState(t *testing.T) {
	l := optimistic.NewList[note](nil)
	release := make(chan struct{})

	for i := 0; i < 3; i++ {
		l.Mutate(context.Background(), optimistic.Mutation[note]{
			Name:   "add",
			Apply:  appendNote(note{ID: int64(i)}),
			Commit: func(ctx context.Context) error { <-release; return nil },
		})
	}

	state := l.State().(optimistic.ListState)
	assert.Equal(t, 3, state.Items)
	assert.Equal(t, 3, state.Pending)

	close(release)
	l.Wait()

	state = l.State().(optimistic.ListState)
	assert.Equal(t, 0, state.Pending)
	assert.Equal(t, "optimistic_list", l.ComponentType())
}

func TestList_ReplaceIsIsolated(t *testing.T) {
	src := []note{{ID: 1}}
	l := optimistic.NewList[note](nil)
	l.Replace(src)
	src[0].ID = 99

	items := l.Items()
	assert.Equal(t, int64(1), items[0].ID)
	items[0].ID = 7
	assert.Equal(t, int64(1), l.Items()[0].ID)
	assert.Equal(t, 1, l.Len())
}

func TestList_ReplaceIfIdle(t *testing.T) {
	ctx := context.Background()
	l := optimistic.NewList([]note{{ID: 1, Title: "a"}})
	reload := []note{{ID: 1, Title: "a"}, {ID: 2, Title: "from backend"}}

	since := l.Changes()
	assert.True(t, l.ReplaceIfIdle(since, reload))
	assert.Len(t, l.Items(), 2)

	// A mutation applied while the reload was in flight wins over the reload.
	since = l.Changes()
	release := make(chan struct{})
	p := l.Mutate(ctx, optimistic.Mutation[note]{
		Name:   "add",
		Apply:  appendNote(note{ID: -1, Title: "local"}),
		Commit: func(ctx context.Context) error { <-release; return nil },
		Merge: func(items []note) []note {
			for i := range items {
				if items[i].ID == -1 {
					items[i].ID = 3
				}
			}
			return items
		},
	})
	assert.False(t, l.ReplaceIfIdle(since, reload), "pending commit")
	close(release)
	require.NoError(t, p.Wait())
	assert.False(t, l.ReplaceIfIdle(since, reload), "mutation settled after the reload started")

	items := l.Items()
	require.Len(t, items, 3)
	assert.Equal(t, int64(3), items[2].ID, "merge found its temporary row")

	assert.True(t, l.ReplaceIfIdle(l.Changes(), reload))
	assert.Len(t, l.Items(), 2)
}
