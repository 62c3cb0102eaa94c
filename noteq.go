package noteq

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/noteq/noteq/internal/platform"
	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/notify"
)

// --- Types ---

// App is a wired client: stores, API client and the account, notes and quiz services.
type App = platform.App

// Config is the resolved client configuration.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring the client.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithBackendURL sets the backend base URL.
func WithBackendURL(url string) Option {
	return platform.WithBackendURL(url)
}

// WithMLURL sets the ML service base URL.
func WithMLURL(url string) Option {
	return platform.WithMLURL(url)
}

// WithStateDir sets the directory holding tokens, caches and config.yaml.
func WithStateDir(dir string) Option {
	return platform.WithStateDir(dir)
}

// WithStore selects the storage adapter: "fs", "sqlite", "postgres", "redis" or "memory".
func WithStore(kind string) Option {
	return platform.WithStore(kind)
}

// WithStoreDSN sets the connection string of the sqlite, postgres or redis adapter.
func WithStoreDSN(dsn string) Option {
	return platform.WithStoreDSN(dsn)
}

// WithTimeout sets the per attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithRefreshInterval sets how often the background refresh runs.
func WithRefreshInterval(d time.Duration) Option {
	return platform.WithRefreshInterval(d)
}

// WithEnvFile loads environment variables from path.
func WithEnvFile(path string) Option {
	return platform.WithEnvFile(path)
}

// WithForceTemp forces the state directory into the temp dir (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used when running via `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return platform.WithHTTPClient(c)
}

// WithMetrics shares a metrics set.
func WithMetrics(m *api.Metrics) Option {
	return platform.WithMetrics(m)
}

// WithNotifier sets where failure alerts go.
func WithNotifier(n notify.Notifier) Option {
	return platform.WithNotifier(n)
}

// WithLocalStore injects the persistent store.
func WithLocalStore(s core.Store) Option {
	return platform.WithLocalStore(s)
}

// WithSessionStore injects the session store.
func WithSessionStore(s core.Store) Option {
	return platform.WithSessionStore(s)
}

// --- Factory ---

// New resolves the configuration, opens the stores and wires the services.
func New(opts ...Option) (*App, error) {
	return platform.New(opts...)
}

// LoadConfig resolves the configuration without opening anything.
func LoadConfig(opts ...Option) (Config, error) {
	return platform.LoadConfig(opts...)
}
