package platform

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/notify"
)

// options holds the internal configuration of a client.
// config only holds values set explicitly, so they win over env and file.
type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	metrics    *api.Metrics
	notifier   notify.Notifier
	local      core.Store
	session    core.Store
	envFile    string
	config     map[string]any
}

// Option defines a functional option for configuring the client.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		config: make(map[string]any),
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackendURL sets the backend base URL.
func WithBackendURL(url string) Option {
	return func(o *options) {
		o.config[keyBackendURL] = url
	}
}

// WithMLURL sets the ML service base URL.
func WithMLURL(url string) Option {
	return func(o *options) {
		o.config[keyMLURL] = url
	}
}

// WithStateDir sets the directory holding local state and config.yaml.
func WithStateDir(dir string) Option {
	return func(o *options) {
		o.config[keyStateDir] = dir
	}
}

// WithStore selects the storage adapter: "fs", "sqlite", "postgres", "redis" or "memory".
func WithStore(kind string) Option {
	return func(o *options) {
		o.config[keyStore] = kind
	}
}

// WithStoreDSN sets the connection string of the sqlite, postgres or redis adapter.
func WithStoreDSN(dsn string) Option {
	return func(o *options) {
		o.config[keyStoreDSN] = dsn
	}
}

// WithTimeout sets the per attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config[keyTimeout] = d
	}
}

// WithRefreshInterval sets how often the background refresh runs.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) {
		o.config[keyRefreshInterval] = d
	}
}

// WithEnvFile loads environment variables from path. The file must exist.
// Without it, ".env" in the working directory is loaded when present.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// WithForceTemp forces the state directory into the temp dir (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config[keyTempDir] = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or `go test`.
// By default (true) the state directory is re-rooted into the temp dir.
//
// CAUTION: Only disable this if you want a dev build to touch real tokens.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config[keyDevSafety] = enabled
	}
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithMetrics shares a metrics set, e.g. one registered on a served registry.
func WithMetrics(m *api.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithNotifier sets where failure alerts go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLocalStore injects the persistent store, skipping the configured adapter.
func WithLocalStore(s core.Store) Option {
	return func(o *options) {
		o.local = s
	}
}

// WithSessionStore injects the session store, skipping the configured adapter.
func WithSessionStore(s core.Store) Option {
	return func(o *options) {
		o.session = s
	}
}
