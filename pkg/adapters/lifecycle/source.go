package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/noteq/noteq/pkg/core"
)

type storeSource struct {
	events <-chan core.StoreEvent
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits store change events.
func NewSource(events <-chan core.StoreEvent) lifecycle.Source {
	return &storeSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *storeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
