// Package optimistic applies list mutations locally before the backend confirms them.
//
// A Mutation is applied synchronously and committed in the background. When the commit
// fails the list goes back to the state it had before the mutation, or, if other
// mutations landed in between, the mutation's Rollback is applied to the current state.
package optimistic

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
)

// Mutation is a local change paired with the remote call that makes it durable.
type Mutation[T any] struct {
	// Name identifies the mutation in logs and failure notifications.
	Name string

	// Apply returns the list with the change applied. Required.
	Apply func(items []T) []T

	// Rollback undoes only this change. It is used when the list changed after Apply.
	Rollback func(items []T) []T

	// Commit performs the remote call. Required.
	Commit func(ctx context.Context) error

	// Merge folds server assigned values (IDs, timestamps) into the list after a
	// successful commit.
	Merge func(items []T) []T
}

// FailureHandler is notified after a failed commit has been rolled back.
type FailureHandler func(name string, err error)

// List is a slice of T guarded for optimistic mutation.
type List[T any] struct {
	mu      sync.RWMutex
	items   []T
	version uint64
	changes uint64 // bumped when a mutation is applied or settled

	wg      sync.WaitGroup
	pending int

	logger    *slog.Logger
	onFailure FailureHandler
}

// Option configures a List.
type Option func(*listOptions)

type listOptions struct {
	logger    *slog.Logger
	onFailure FailureHandler
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *listOptions) {
		o.logger = logger
	}
}

// WithFailureHandler sets the handler called after a rollback.
func WithFailureHandler(fn FailureHandler) Option {
	return func(o *listOptions) {
		o.onFailure = fn
	}
}

// NewList creates a List holding a copy of items.
func NewList[T any](items []T, opts ...Option) *List[T] {
	o := listOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onFailure == nil {
		logger := o.logger
		o.onFailure = func(name string, err error) {
			logger.Warn("change was not saved and has been reverted", "mutation", name, "error", err)
		}
	}
	return &List[T]{
		items:     slices.Clone(items),
		logger:    o.logger,
		onFailure: o.onFailure,
	}
}

// Items returns a copy of the current items.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Pending returns the number of commits still in flight.
func (l *List[T]) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pending
}

// Replace swaps the whole list, typically after a reload from the backend.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
	l.version++
}

// Changes returns a counter that moves whenever a mutation is applied or settled.
// Pass it to ReplaceIfIdle to detect mutations that raced with a reload.
func (l *List[T]) Changes() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changes
}

// ReplaceIfIdle swaps the whole list when no commit is pending and no mutation
// was applied or settled since Changes returned since. It reports whether the
// list was replaced.
func (l *List[T]) ReplaceIfIdle(since uint64, items []T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending > 0 || l.changes != since {
		return false
	}
	l.items = slices.Clone(items)
	l.version++
	return true
}

// Pending tracks one background commit.
type Pending struct {
	done chan struct{}
	err  error
}

// Done is closed when the commit has finished and the list has been reconciled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the commit has finished and returns its error.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// Mutate applies m immediately and commits it in the background.
func (l *List[T]) Mutate(ctx context.Context, m Mutation[T]) *Pending {
	l.mu.Lock()
	snapshot := slices.Clone(l.items)
	l.items = m.Apply(slices.Clone(l.items))
	l.version++
	applied := l.version
	l.pending++
	l.changes++
	l.mu.Unlock()

	l.logger.Debug("optimistic change applied", "mutation", m.Name)

	p := &Pending{done: make(chan struct{})}
	l.wg.Add(1)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer l.wg.Done()
		defer close(p.done)

		err := m.Commit(ctx)
		l.settle(m, snapshot, applied, err)
		p.err = err
		if err != nil {
			l.onFailure(m.Name, err)
		}
		return nil
	})
	return p
}

func (l *List[T]) settle(m Mutation[T], snapshot []T, applied uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending--
	l.changes++

	if err == nil {
		if m.Merge != nil {
			l.items = m.Merge(slices.Clone(l.items))
			l.version++
		}
		return
	}

	switch {
	case l.version == applied:
		l.items = snapshot
	case m.Rollback != nil:
		l.items = m.Rollback(slices.Clone(l.items))
	default:
		l.logger.Warn("cannot revert change, list was modified meanwhile", "mutation", m.Name)
		return
	}
	l.version++
}

// Wait blocks until every background commit has finished.
func (l *List[T]) Wait() {
	l.wg.Wait()
}

// ListState exposes the list for observability.
type ListState struct {
	Items   int    `json:"items"`
	Pending int    `json:"pending"`
	Version uint64 `json:"version"`
}

// State implements introspection.Introspectable.
func (l *List[T]) State() any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ListState{Items: len(l.items), Pending: l.pending, Version: l.version}
}

// ComponentType implements introspection.Component.
func (l *List[T]) ComponentType() string {
	return "optimistic_list"
}

var _ introspection.Introspectable = (*List[int])(nil)
var _ introspection.Component = (*List[int])(nil)
