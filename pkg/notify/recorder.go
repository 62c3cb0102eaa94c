package notify

import (
	"context"
	"sync"
)

// Recorder is a scripted Notifier for tests and non interactive embedding.
type Recorder struct {
	mu      sync.Mutex
	alerts  []string
	answers []string

	// ConfirmAnswer is returned by every Confirm call.
	ConfirmAnswer bool
}

// NewRecorder returns a Recorder that answers prompts with answers, in order.
func NewRecorder(answers ...string) *Recorder {
	return &Recorder{answers: answers}
}

// Alert implements Notifier.
func (r *Recorder) Alert(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, msg)
}

// Confirm implements Notifier.
func (r *Recorder) Confirm(_ context.Context, _ string) (bool, error) {
	return r.ConfirmAnswer, nil
}

// Prompt implements Notifier.
func (r *Recorder) Prompt(_ context.Context, _ string, def string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.answers) == 0 {
		return def, nil
	}
	a := r.answers[0]
	r.answers = r.answers[1:]
	if a == "" {
		return def, nil
	}
	return a, nil
}

// Password implements Notifier.
func (r *Recorder) Password(ctx context.Context, msg string) (string, error) {
	r.mu.Lock()
	empty := len(r.answers) == 0
	r.mu.Unlock()
	if empty {
		return "", ErrNotInteractive
	}
	return r.Prompt(ctx, msg, "")
}

// Alerts returns the messages shown so far.
func (r *Recorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}
