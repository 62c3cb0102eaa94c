package platform

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/refresh"
)

// Environment variables.
const (
	EnvBackendURL      = "NOTEQ_BACKEND_URL"
	EnvMLURL           = "NOTEQ_ML_URL"
	EnvStateDir        = "NOTEQ_STATE_DIR"
	EnvStore           = "NOTEQ_STORE"
	EnvStoreDSN        = "NOTEQ_STORE_DSN"
	EnvTimeout         = "NOTEQ_TIMEOUT"
	EnvRefreshInterval = "NOTEQ_REFRESH_INTERVAL"
)

// Storage adapters.
const (
	StoreFS       = "fs"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// ConfigFile is read from the state directory.
const ConfigFile = "config.yaml"

const (
	keyBackendURL      = "backend_url"
	keyMLURL           = "ml_url"
	keyStateDir        = "state_dir"
	keyStore           = "store"
	keyStoreDSN        = "store_dsn"
	keyTimeout         = "timeout"
	keyRefreshInterval = "refresh_interval"
	keyTempDir         = "temp_dir"
	keyDevSafety       = "dev_safety"
)

// Config is the resolved client configuration.
type Config struct {
	BackendURL      string        `json:"backend_url" yaml:"backend_url" validate:"required,url"`
	MLURL           string        `json:"ml_url" yaml:"ml_url" validate:"required,url"`
	StateDir        string        `json:"state_dir" yaml:"-"`
	Store           string        `json:"store" yaml:"store" validate:"oneof=fs sqlite postgres redis memory"`
	StoreDSN        string        `json:"-" yaml:"store_dsn"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`
	RefreshInterval time.Duration `json:"refresh_interval" yaml:"refresh_interval" validate:"gt=0"`
}

func defaultConfig() Config {
	return Config{
		BackendURL:      api.DefaultBackendURL,
		MLURL:           api.DefaultMLURL,
		Store:           StoreFS,
		Timeout:         api.DefaultTimeout,
		RefreshInterval: refresh.DefaultInterval,
	}
}

// LoadConfig resolves the configuration. Precedence is options, then
// environment (including .env), then <state>/config.yaml, then defaults.
func LoadConfig(opts ...Option) (Config, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o.loadConfig()
}

func (o *options) loadConfig() (Config, error) {
	if err := o.loadEnvFile(); err != nil {
		return Config{}, err
	}

	dir, err := o.stateDir()
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if err := readConfigFile(filepath.Join(dir, ConfigFile), &cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	o.apply(&cfg)
	cfg.StateDir = dir

	if err := core.Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Store == StorePostgres && cfg.StoreDSN == "" {
		return Config{}, core.Invalid("store_dsn", "is required for the postgres store")
	}
	return cfg, nil
}

func (o *options) loadEnvFile() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// stateDir picks the state directory and applies the dev sandbox.
func (o *options) stateDir() (string, error) {
	dir, _ := o.config[keyStateDir].(string)
	if dir == "" {
		dir = os.Getenv(EnvStateDir)
	}
	if dir == "" {
		if root, err := FindRoot("."); err == nil {
			dir = filepath.Join(root, SystemDir)
		}
	}
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config dir: %w", err)
		}
		dir = filepath.Join(base, "noteq")
	}

	devSafety := true
	if val, ok := o.config[keyDevSafety].(bool); ok {
		devSafety = val
	}
	tempDir, _ := o.config[keyTempDir].(bool)
	useTemp := tempDir || (IsDevRun() && devSafety)
	resolved := ResolveStateDir(dir, useTemp)

	if IsDevRun() && o.logger != nil {
		if devSafety {
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		} else {
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
		}
	}
	return resolved, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	for env, dst := range map[string]*string{
		EnvBackendURL: &cfg.BackendURL,
		EnvMLURL:      &cfg.MLURL,
		EnvStore:      &cfg.Store,
		EnvStoreDSN:   &cfg.StoreDSN,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
	for env, dst := range map[string]*time.Duration{
		EnvTimeout:         &cfg.Timeout,
		EnvRefreshInterval: &cfg.RefreshInterval,
	} {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return core.Invalid(env, "%v", err)
		}
		*dst = d
	}
	return nil
}

// parseDuration accepts Go durations and plain seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (o *options) apply(cfg *Config) {
	if v, ok := o.config[keyBackendURL].(string); ok && v != "" {
		cfg.BackendURL = v
	}
	if v, ok := o.config[keyMLURL].(string); ok && v != "" {
		cfg.MLURL = v
	}
	if v, ok := o.config[keyStore].(string); ok && v != "" {
		cfg.Store = v
	}
	if v, ok := o.config[keyStoreDSN].(string); ok && v != "" {
		cfg.StoreDSN = v
	}
	if v, ok := o.config[keyTimeout].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := o.config[keyRefreshInterval].(time.Duration); ok && v > 0 {
		cfg.RefreshInterval = v
	}
}

// LogValue implements slog.LogValuer. The DSN may carry credentials and is left out.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", c.BackendURL),
		slog.String("ml", c.MLURL),
		slog.String("state_dir", c.StateDir),
		slog.String("store", c.Store),
		slog.Duration("timeout", c.Timeout),
	)
}

// Save writes the file backed part of c to <state>/config.yaml.
func (c Config) Save() error {
	if err := os.MkdirAll(c.StateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.StateDir, err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(c.StateDir, ConfigFile), data)
}
