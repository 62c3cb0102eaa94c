package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	Entries       int        `json:"entries"`
	Loaded        bool       `json:"loaded"`
	Writes        int        `json:"writes"`
	WatcherActive bool       `json:"watcher_active"`
	LastReload    *time.Time `json:"last_reload,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{
		Path:          s.path,
		Entries:       len(s.entries),
		Loaded:        s.loaded,
		Writes:        s.writes,
		WatcherActive: s.watcherActive,
		LastReload:    s.lastReload,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
