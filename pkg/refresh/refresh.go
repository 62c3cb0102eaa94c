// Package refresh keeps cached server data warm by re-fetching it on a schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/go-co-op/gocron"

	"github.com/noteq/noteq/pkg/core"
)

// DefaultInterval matches the lifetime of the short lived caches.
const DefaultInterval = 30 * time.Second

// Task is one refresh job.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskState reports how a task has been doing.
type TaskState struct {
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs refresh tasks every interval.
type Scheduler struct {
	cron     *gocron.Scheduler
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	tasks   []Task
	stats   map[string]*TaskState
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithInterval sets how often the tasks run.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTimeout bounds a single task run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// New creates a Scheduler. Tasks are added with Add before Start.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		logger:   slog.Default(),
		interval: DefaultInterval,
		timeout:  10 * time.Second,
		stats:    make(map[string]*TaskState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron.SingletonModeAll()
	return s
}

// Add registers a task.
func (s *Scheduler) Add(name string, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, Task{Name: name, Run: run})
	s.stats[name] = &TaskState{}
}

// Start schedules every task and returns immediately. The scheduler stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("refresh scheduler already started: %w", core.ErrInvalidState)
	}
	s.started = true
	tasks := append([]Task(nil), s.tasks...)
	s.mu.Unlock()

	for _, t := range tasks {
		if _, err := s.cron.Every(s.interval).Tag(t.Name).Do(s.run, ctx, t); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", t.Name, err)
		}
	}
	s.cron.StartAsync()
	s.logger.Debug("refresh scheduler started", "tasks", len(tasks), "interval", s.interval)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		s.cron.Stop()
		s.logger.Debug("refresh scheduler stopped")
		return nil
	})
	return nil
}

// RunOnce runs every task now, in order.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	tasks := append([]Task(nil), s.tasks...)
	s.mu.Unlock()

	var errs []error
	for _, t := range tasks {
		if err := s.run(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context, t Task) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := t.Run(runCtx)

	s.mu.Lock()
	st := s.stats[t.Name]
	st.Runs++
	st.LastRun = time.Now()
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("refresh failed", "task", t.Name, "error", err)
	} else {
		s.logger.Debug("refreshed", "task", t.Name)
	}
	return err
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Stats returns a copy of the per task state.
func (s *Scheduler) Stats() map[string]TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TaskState, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

// SchedulerState is the observable state of a Scheduler.
type SchedulerState struct {
	Running  bool                 `json:"running"`
	Interval string               `json:"interval"`
	Tasks    map[string]TaskState `json:"tasks"`
}

// State implements introspection.Introspectable.
func (s *Scheduler) State() any {
	return SchedulerState{
		Running:  s.cron.IsRunning(),
		Interval: s.interval.String(),
		Tasks:    s.Stats(),
	}
}

// ComponentType implements introspection.Component.
func (s *Scheduler) ComponentType() string {
	return "refresh_scheduler"
}

var _ introspection.Introspectable = (*Scheduler)(nil)
var _ introspection.Component = (*Scheduler)(nil)
