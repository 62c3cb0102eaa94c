package refresh

import (
	"context"

	"github.com/noteq/noteq/pkg/core"
)

// FamiliarityFetcher is implemented by account.Service.
type FamiliarityFetcher interface {
	RefreshFamiliarity(ctx context.Context) ([]core.Familiarity, error)
}

// NotesFetcher is implemented by notes.Service.
type NotesFetcher interface {
	ClearCache(ctx context.Context)
	Notes(ctx context.Context) ([]core.Note, error)
}

// Familiarity returns a task that re-fetches the familiarity scores.
func Familiarity(f FamiliarityFetcher) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := f.RefreshFamiliarity(ctx)
		return err
	}
}

// Notes returns a task that drops the cached listing and loads it again.
func Notes(n NotesFetcher) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n.ClearCache(ctx)
		_, err := n.Notes(ctx)
		return err
	}
}
