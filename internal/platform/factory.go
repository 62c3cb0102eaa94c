package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/introspection"

	"github.com/noteq/noteq/pkg/account"
	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/notes"
	"github.com/noteq/noteq/pkg/notify"
	"github.com/noteq/noteq/pkg/quiz"
	"github.com/noteq/noteq/pkg/refresh"
)

// App is a fully wired client.
type App struct {
	Config  Config
	Logger  *slog.Logger
	Local   core.Store
	Session core.Store
	Client  *api.Client
	Account *account.Service
	Notes   *notes.Service
	Quiz    *quiz.Flow
	Refresh *refresh.Scheduler

	closer io.Closer
}

// New resolves the configuration, opens the stores and wires the services.
//
//	app, err := noteq.New(noteq.WithBackendURL("http://localhost:8000"))
func New(opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "config", cfg)

	app := &App{Config: cfg, Logger: logger, Local: o.local, Session: o.session}
	if app.Local == nil || app.Session == nil {
		local, session, closer, err := openStores(context.Background(), cfg, logger)
		if err != nil {
			return nil, err
		}
		app.closer = closer
		if app.Local == nil {
			app.Local = local
		}
		if app.Session == nil {
			app.Session = session
		}
	}

	metrics := o.metrics
	if metrics == nil {
		metrics = api.NewMetrics(nil)
	}
	app.Client = api.New(api.Config{
		BackendURL: cfg.BackendURL,
		MLURL:      cfg.MLURL,
		Timeout:    cfg.Timeout,
		HTTPClient: o.httpClient,
		Logger:     logger,
		Metrics:    metrics,
		Token:      app.token,
	})

	notifier := o.notifier
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}
	app.Account = account.New(app.Client, app.Local, app.Session,
		account.WithLogger(logger), account.WithCacheObserver(metrics.ObserveCache))
	app.Notes = notes.New(app.Client, app.Session,
		notes.WithLogger(logger), notes.WithNotifier(notifier), notes.WithCacheObserver(metrics.ObserveCache))
	app.Quiz = quiz.New(app.Client, app.Local, app.Session, quiz.WithLogger(logger))

	app.Refresh = refresh.New(refresh.WithLogger(logger), refresh.WithInterval(cfg.RefreshInterval))
	app.Refresh.Add("familiarity", refresh.Familiarity(app.Account))
	app.Refresh.Add("notes", refresh.Notes(app.Notes))
	return app, nil
}

func (a *App) token(ctx context.Context) (string, error) {
	sess, err := core.CurrentSession(ctx, a.Local)
	return sess.Token, err
}

// Components lists everything that reports state.
func (a *App) Components() []introspection.Introspectable {
	out := []introspection.Introspectable{a.Quiz, a.Refresh}
	out = append(out, a.Account.Caches()...)
	out = append(out, a.Notes.Components()...)
	if c, ok := a.Local.(introspection.Introspectable); ok {
		out = append(out, c)
	}
	return out
}

// Close waits for pending note commits and releases the stores.
func (a *App) Close() error {
	a.Notes.Wait()
	a.Refresh.Stop()
	var errs []error
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
	}
	return errors.Join(errs...)
}
