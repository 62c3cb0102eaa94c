// Package notify delivers user facing messages and questions.
//
// Components never talk to a terminal directly. They take a Notifier from the
// context, so the CLI can install an interactive one while library users and tests
// install their own.
package notify

import (
	"context"
	"log/slog"
)

// Notifier shows messages and asks questions.
type Notifier interface {
	// Alert shows a message. It never blocks on the user.
	Alert(ctx context.Context, msg string)

	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, msg string) (bool, error)

	// Prompt asks for a line of text. def is returned for an empty answer.
	Prompt(ctx context.Context, msg, def string) (string, error)

	// Password asks for a secret without echo.
	Password(ctx context.Context, msg string) (string, error)
}

type ctxKey struct{}

// WithNotifier returns a context carrying n.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the Notifier of ctx, or one that logs alerts and declines
// every question.
func FromContext(ctx context.Context) Notifier {
	if n, ok := ctx.Value(ctxKey{}).(Notifier); ok && n != nil {
		return n
	}
	return Log{Logger: slog.Default()}
}

// Log is a non interactive Notifier.
type Log struct {
	Logger *slog.Logger
}

// Alert logs msg at Info level.
func (l Log) Alert(ctx context.Context, msg string) {
	l.Logger.InfoContext(ctx, msg)
}

// Confirm always answers no.
func (l Log) Confirm(ctx context.Context, msg string) (bool, error) {
	l.Logger.DebugContext(ctx, "confirmation declined, no interactive notifier", "question", msg)
	return false, nil
}

// Prompt always returns def.
func (l Log) Prompt(ctx context.Context, msg, def string) (string, error) {
	return def, nil
}

// Password fails, secrets cannot be defaulted.
func (l Log) Password(ctx context.Context, msg string) (string, error) {
	return "", ErrNotInteractive
}
