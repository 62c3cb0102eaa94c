// Package notes manages notes and subjects with optimistic local updates.
//
// Reads go through a 30 second cache of the backend listing. Every change is
// applied to the local lists at once and saved in the background; a change the
// backend refuses is reverted and reported through the Notifier.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/introspection"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/cache"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/notify"
	"github.com/noteq/noteq/pkg/optimistic"
)

const listingKey = "quiz_and_notes"

// ErrNotDeleted is returned when the backend answered a subject deletion by
// restoring it instead.
var ErrNotDeleted = errors.New("subject was restored instead of deleted")

// Service holds the local view of notes and subjects.
type Service struct {
	client   *api.Client
	session  core.Store
	logger   *slog.Logger
	notifier notify.Notifier
	now      func() time.Time

	listing  *cache.TTL[api.QuizAndNotes]
	notes    *optimistic.List[core.Note]
	subjects *optimistic.List[core.Subject]

	mu         sync.Mutex
	subjectIDs map[string]int64

	// Temporary IDs of items not yet saved are negative.
	tempID atomic.Int64
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	notifier notify.Notifier
	now      func() time.Time
	observer func(name string, hit bool)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNotifier sets where failed background saves are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithCacheObserver is called on every listing cache lookup.
func WithCacheObserver(fn func(name string, hit bool)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// New creates a Service. session receives the generated topic handoff.
func New(client *api.Client, session core.Store, opts ...Option) *Service {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = notify.Log{Logger: o.logger}
	}

	s := &Service{
		client:     client,
		session:    session,
		logger:     o.logger,
		notifier:   o.notifier,
		now:        o.now,
		subjectIDs: make(map[string]int64),
	}

	cacheOpts := []cache.Option{cache.WithClock(o.now), cache.WithLogger(o.logger)}
	if o.observer != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(o.observer))
	}
	s.listing = cache.New[api.QuizAndNotes]("notes", cache.ShortTTL, cacheOpts...)

	onFailure := optimistic.WithFailureHandler(s.reportFailure)
	s.notes = optimistic.NewList[core.Note](nil, optimistic.WithLogger(o.logger), onFailure)
	s.subjects = optimistic.NewList[core.Subject](nil, optimistic.WithLogger(o.logger), onFailure)
	return s
}

func (s *Service) reportFailure(name string, err error) {
	s.logger.Warn("change reverted", "mutation", name, "error", err)
	s.notifier.Alert(context.Background(), fmt.Sprintf("Could not %s: %s", name, api.ErrorMessage(err)))
}

func (s *Service) nextTempID() int64 {
	return -s.tempID.Add(1)
}

// fetch returns the cached backend listing and refreshes the local lists,
// unless local changes are still being saved.
func (s *Service) fetch(ctx context.Context) (api.QuizAndNotes, error) {
	notesSince, subjectsSince := s.notes.Changes(), s.subjects.Changes()
	data, err := s.listing.Fetch(ctx, listingKey, s.client.QuizAndNotes)
	if err != nil {
		return api.QuizAndNotes{}, err
	}

	s.mu.Lock()
	clear(s.subjectIDs)
	for _, sub := range data.Subjects {
		if name := strings.TrimSpace(sub.Name); name != "" && sub.ID != 0 {
			s.subjectIDs[name] = sub.ID
		}
	}
	s.mu.Unlock()

	s.notes.ReplaceIfIdle(notesSince, fromRecords(data, s.now()))
	s.subjects.ReplaceIfIdle(subjectsSince, data.Subjects)
	return data, nil
}

// Notes returns every note. The backend is queried at most every 30 seconds.
func (s *Service) Notes(ctx context.Context) ([]core.Note, error) {
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	return s.notes.Items(), nil
}

// NotesBySubject returns the notes filed under subject.
func (s *Service) NotesBySubject(ctx context.Context, subject string) ([]core.Note, error) {
	all, err := s.Notes(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(n core.Note) bool { return n.Subject != subject }), nil
}

// Note returns one note by id.
func (s *Service) Note(ctx context.Context, id int64) (core.Note, error) {
	all, err := s.Notes(ctx)
	if err != nil {
		return core.Note{}, err
	}
	i := slices.IndexFunc(all, func(n core.Note) bool { return n.ID == id })
	if i < 0 {
		return core.Note{}, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
	}
	return all[i], nil
}

// Subjects returns the subject names.
func (s *Service) Subjects(ctx context.Context) ([]string, error) {
	subs, err := s.SubjectsWithIDs(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(subs))
	for _, sub := range subs {
		names = append(names, sub.Name)
	}
	return names, nil
}

// SubjectsWithIDs returns the subjects with a name and an id.
func (s *Service) SubjectsWithIDs(ctx context.Context) ([]core.Subject, error) {
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(s.subjects.Items(), func(sub core.Subject) bool {
		return sub.Name == ""
	}), nil
}

// Local returns the notes as currently shown, pending changes included.
func (s *Service) Local() []core.Note {
	return s.notes.Items()
}

// ClearCache forgets the cached listing and the subject id map.
func (s *Service) ClearCache(ctx context.Context) {
	if err := s.listing.Invalidate(ctx, listingKey); err != nil {
		s.logger.Warn("failed to clear notes cache", "error", err)
	}
	s.mu.Lock()
	clear(s.subjectIDs)
	s.mu.Unlock()
}

// SubjectID resolves a subject name, reloading the listing on a miss.
func (s *Service) SubjectID(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	id, ok := s.subjectIDs[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	s.ClearCache(ctx)
	if _, err := s.fetch(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	id, ok = s.subjectIDs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("subject %q: %w", name, core.ErrNotFound)
	}
	return id, nil
}

// saved wraps a commit so the listing is refetched after a successful save.
func (s *Service) saved(commit func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := commit(ctx); err != nil {
			return err
		}
		s.ClearCache(ctx)
		return nil
	}
}

// Add creates a note. It appears locally at once with a temporary negative id
// that is replaced by the backend id once saved.
func (s *Service) Add(ctx context.Context, in core.NoteInput) (*optimistic.Pending, error) {
	if err := core.Validate(in); err != nil {
		return nil, err
	}
	subjectID, err := s.SubjectID(ctx, in.Subject)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note := core.Note{
		ID:        s.nextTempID(),
		Title:     titleFor(in.Title, in.Content),
		Content:   in.Content,
		Subject:   strings.TrimSpace(in.Subject),
		CreatedAt: now,
		UpdatedAt: now,
	}
	var saved api.CreateNoteResponse
	return s.notes.Mutate(ctx, optimistic.Mutation[core.Note]{
		Name: "add note",
		Apply: func(items []core.Note) []core.Note {
			return append(items, note)
		},
		Rollback: func(items []core.Note) []core.Note {
			return removeNote(items, note.ID)
		},
		Commit: s.saved(func(ctx context.Context) error {
			var err error
			saved, err = s.client.CreateNote(ctx, api.CreateNoteRequest{
				Title:     note.Title,
				QuizTopic: subjectID,
				Content:   note.Content,
			})
			return err
		}),
		Merge: func(items []core.Note) []core.Note {
			for i := range items {
				if items[i].ID == note.ID {
					items[i].ID = saved.NoteID
				}
			}
			return items
		},
	}), nil
}

func removeNote(items []core.Note, id int64) []core.Note {
	return slices.DeleteFunc(items, func(n core.Note) bool { return n.ID == id })
}

func (s *Service) localNote(id int64) (core.Note, error) {
	items := s.notes.Items()
	i := slices.IndexFunc(items, func(n core.Note) bool { return n.ID == id })
	if i < 0 {
		return core.Note{}, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
	}
	if id < 0 {
		return core.Note{}, fmt.Errorf("note %d is still being saved: %w", id, core.ErrInvalidState)
	}
	return items[i], nil
}

// Update replaces the title and content of a note.
func (s *Service) Update(ctx context.Context, id int64, title, content string) (*optimistic.Pending, error) {
	if strings.TrimSpace(content) == "" {
		return nil, core.Invalid("content", "is required")
	}
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	old, err := s.localNote(id)
	if err != nil {
		return nil, err
	}
	title = titleFor(title, content)
	now := s.now()
	return s.notes.Mutate(ctx, optimistic.Mutation[core.Note]{
		Name: "update note",
		Apply: func(items []core.Note) []core.Note {
			for i := range items {
				if items[i].ID == id {
					items[i].Title, items[i].Content, items[i].UpdatedAt = title, content, now
				}
			}
			return items
		},
		Rollback: func(items []core.Note) []core.Note {
			for i := range items {
				if items[i].ID == id {
					items[i].Title, items[i].Content, items[i].UpdatedAt = old.Title, old.Content, old.UpdatedAt
				}
			}
			return items
		},
		Commit: s.saved(func(ctx context.Context) error {
			return s.client.UpdateNote(ctx, id, title, content)
		}),
	}), nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, id int64) (*optimistic.Pending, error) {
	if _, err := s.fetch(ctx); err != nil {
		return nil, err
	}
	old, err := s.localNote(id)
	if err != nil {
		return nil, err
	}
	return s.notes.Mutate(ctx, optimistic.Mutation[core.Note]{
		Name: "delete note",
		Apply: func(items []core.Note) []core.Note {
			return removeNote(items, id)
		},
		Rollback: func(items []core.Note) []core.Note {
			items = append(items, old)
			slices.SortStableFunc(items, func(a, b core.Note) int { return compareIDs(a.ID, b.ID) })
			return items
		},
		Commit: s.saved(func(ctx context.Context) error {
			return s.client.DeleteNote(ctx, id)
		}),
	}), nil
}

// compareIDs orders saved notes by id and keeps unsaved ones last.
func compareIDs(a, b int64) int {
	switch {
	case a < 0 && b >= 0:
		return 1
	case b < 0 && a >= 0:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Move files a note under another subject.
func (s *Service) Move(ctx context.Context, id int64, subject string) (*optimistic.Pending, error) {
	subjectID, err := s.SubjectID(ctx, subject)
	if err != nil {
		return nil, err
	}
	old, err := s.localNote(id)
	if err != nil {
		return nil, err
	}
	subject = strings.TrimSpace(subject)
	return s.notes.Mutate(ctx, optimistic.Mutation[core.Note]{
		Name: "move note",
		Apply: func(items []core.Note) []core.Note {
			for i := range items {
				if items[i].ID == id {
					items[i].Subject = subject
				}
			}
			return items
		},
		Rollback: func(items []core.Note) []core.Note {
			for i := range items {
				if items[i].ID == id {
					items[i].Subject = old.Subject
				}
			}
			return items
		},
		Commit: s.saved(func(ctx context.Context) error {
			return s.client.MoveNote(ctx, id, subjectID)
		}),
	}), nil
}

// AddSubject creates a subject.
func (s *Service) AddSubject(ctx context.Context, name string) (*optimistic.Pending, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.Invalid("subject", "is required")
	}
	sub := core.Subject{ID: s.nextTempID(), Name: name}
	var created api.CreateQuizTopicResponse
	return s.subjects.Mutate(ctx, optimistic.Mutation[core.Subject]{
		Name: "add subject",
		Apply: func(items []core.Subject) []core.Subject {
			return append(items, sub)
		},
		Rollback: func(items []core.Subject) []core.Subject {
			return slices.DeleteFunc(items, func(x core.Subject) bool { return x.ID == sub.ID })
		},
		Commit: s.saved(func(ctx context.Context) error {
			var err error
			created, err = s.client.CreateQuizTopic(ctx, name)
			return err
		}),
		Merge: func(items []core.Subject) []core.Subject {
			for i := range items {
				if items[i].ID == sub.ID {
					items[i].ID = created.QuizTopicID
				}
			}
			return items
		},
	}), nil
}

// DeleteSubject soft deletes a subject. The backend toggles deletion, so an
// answer that does not confirm the deletion is treated as a failure.
func (s *Service) DeleteSubject(ctx context.Context, name string) (*optimistic.Pending, error) {
	id, err := s.SubjectID(ctx, name)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	old := core.Subject{ID: id, Name: name}
	return s.subjects.Mutate(ctx, optimistic.Mutation[core.Subject]{
		Name: "delete subject",
		Apply: func(items []core.Subject) []core.Subject {
			return slices.DeleteFunc(items, func(x core.Subject) bool { return x.ID == id })
		},
		Rollback: func(items []core.Subject) []core.Subject {
			return append(items, old)
		},
		Commit: s.saved(func(ctx context.Context) error {
			resp, err := s.client.SoftDeleteQuiz(ctx, id)
			if err != nil {
				return err
			}
			return checkDeleted(resp.Message)
		}),
	}), nil
}

func checkDeleted(msg string) error {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "restored") || !strings.Contains(lower, "deleted") {
		return fmt.Errorf("%w: %q", ErrNotDeleted, msg)
	}
	return nil
}

// Wait blocks until every background save has finished.
func (s *Service) Wait() {
	s.notes.Wait()
	s.subjects.Wait()
}

// GenerateTopic asks the ML service for a quiz topic matching a note and stages
// it in the session for the next quiz.
func (s *Service) GenerateTopic(ctx context.Context, id int64) (string, error) {
	n, err := s.Note(ctx, id)
	if err != nil {
		return "", err
	}
	resp, err := s.client.GenerateTopicFromNote(ctx, api.GenerateTopicRequest{NoteContent: n.Content, NoteTitle: n.Title})
	if err != nil {
		return "", err
	}
	for key, value := range map[string]string{
		core.KeyGeneratedTopic:       resp.Topic,
		core.KeyGeneratedTopicSource: "note",
		core.KeyGeneratedTopicNoteID: strconv.FormatInt(id, 10),
	} {
		if err := s.session.Set(ctx, key, value); err != nil {
			return "", fmt.Errorf("failed to stage generated topic: %w", err)
		}
	}
	return resp.Topic, nil
}

// Components exposes the caches and lists for introspection.
func (s *Service) Components() []introspection.Introspectable {
	return []introspection.Introspectable{s.listing, s.notes, s.subjects}
}
