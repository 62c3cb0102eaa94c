// Package fs persists client state as a JSON document on the local filesystem.
//
// One Store maps to one file (for example ~/.noteq/local.json). Writes go through a
// temp file and a rename. A Store can watch its file and reload it when another
// process changes it.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/noteq/noteq/pkg/core"
)

const documentVersion = 1

// document is the on-disk layout.
type document struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// Config holds the configuration of a file store.
type Config struct {
	Dir    string // Directory holding the state file, created on demand.
	Name   string // File name without extension. Defaults to "local".
	Logger *slog.Logger

	// ErrorHandler receives watcher errors. Defaults to logging them.
	ErrorHandler func(error)
}

// Store implements core.Store on a JSON file.
type Store struct {
	path   string
	config Config

	mu            sync.RWMutex
	entries       map[string]string
	loaded        bool
	watcherActive bool
	lastReload    *time.Time
	writes        int
}

// New creates a file store. The file is read lazily on first access.
func New(config Config) *Store {
	if config.Name == "" {
		config.Name = "local"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{
		path:    filepath.Join(config.Dir, config.Name+".json"),
		config:  config,
		entries: make(map[string]string),
	}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty store and a corrupted
// one is reset to empty, so a damaged cache never blocks the client.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	entries, err := s.readFile()
	if err != nil {
		return err
	}
	s.entries = entries
	s.loaded = true
	return nil
}

func (s *Store) readFile() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil || doc.Entries == nil {
		s.config.Logger.Warn("state file unreadable, starting fresh", "path", s.path, "error", err)
		return make(map[string]string), nil
	}
	return doc.Entries, nil
}

func (s *Store) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.loadLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(document{Version: documentVersion, Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := WriteFileAtomic(s.path, data, 0o600); err != nil {
		return err
	}
	s.writes++
	return nil
}

// Get implements core.Store.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set implements core.Store.
func (s *Store) Set(_ context.Context, key, value string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok && cur == value {
		return nil
	}
	s.entries[key] = value
	return s.saveLocked()
}

// Delete implements core.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.saveLocked()
}

// Clear implements core.Store.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]string)
	s.loaded = true
	return s.saveLocked()
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() ([]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// reload re-reads the file and returns the keys whose value changed.
func (s *Store) reload() ([]string, error) {
	fresh, err := s.readFile()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for k, v := range fresh {
		if cur, ok := s.entries[k]; !ok || cur != v {
			changed = append(changed, k)
		}
	}
	for k := range s.entries {
		if _, ok := fresh[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)

	s.entries = fresh
	s.loaded = true
	now := time.Now()
	s.lastReload = &now
	return changed, nil
}

// Watch reports keys changed by other processes until ctx is done.
// The returned channel is closed when the watcher stops.
func (s *Store) Watch(ctx context.Context) (<-chan core.StoreEvent, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	events := make(chan core.StoreEvent)
	w := newWatchWorker(s, events)
	w.closeOnExit = true
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

var (
	_ core.Store     = (*Store)(nil)
	_ core.Watchable = (*Store)(nil)
)
