package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/core"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvBackendURL, EnvMLURL, EnvStateDir, EnvStore, EnvStoreDSN, EnvTimeout, EnvRefreshInterval} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig(WithStateDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.BackendURL)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.MLURL)
	assert.Equal(t, StoreFS, cfg.Store)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, dir, cfg.StateDir)
}

func TestLoadConfig_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := "backend_url: http://file:8000\nml_url: http://file:5000\nstore: sqlite\ntimeout: 3s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(file), 0o600))

	cfg, err := LoadConfig(WithStateDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "http://file:8000", cfg.BackendURL)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.Timeout)

	t.Setenv(EnvBackendURL, "http://env:8000")
	t.Setenv(EnvTimeout, "7")
	cfg, err = LoadConfig(WithStateDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "http://env:8000", cfg.BackendURL)
	assert.Equal(t, "http://file:5000", cfg.MLURL)
	assert.Equal(t, 7*time.Second, cfg.Timeout)

	cfg, err = LoadConfig(WithStateDir(dir), WithBackendURL("http://flag:8000"), WithStore(StoreMemory))
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8000", cfg.BackendURL)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoadConfig_StateDirFromEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvStateDir, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.StateDir)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvMLURL)
	t.Cleanup(func() { os.Unsetenv(EnvMLURL) })

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvMLURL+"=http://dotenv:5000\n"), 0o600))

	cfg, err := LoadConfig(WithStateDir(t.TempDir()), WithEnvFile(envFile))
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv:5000", cfg.MLURL)

	_, err = LoadConfig(WithStateDir(t.TempDir()), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := LoadConfig(WithStateDir(dir), WithStore("floppy"))
	assert.True(t, core.IsValidation(err), "%v", err)

	_, err = LoadConfig(WithStateDir(dir), WithStore(StorePostgres))
	assert.True(t, core.IsValidation(err), "%v", err)

	t.Setenv(EnvTimeout, "soon")
	_, err = LoadConfig(WithStateDir(dir))
	assert.True(t, core.IsValidation(err), "%v", err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("store: [\n"), 0o600))
	t.Setenv(EnvTimeout, "")
	_, err = LoadConfig(WithStateDir(dir))
	assert.Error(t, err)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := LoadConfig(WithStateDir(dir), WithMLURL("http://saved:5000"), WithRefreshInterval(time.Minute))
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	loaded, err := LoadConfig(WithStateDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "http://saved:5000", loaded.MLURL)
	assert.Equal(t, time.Minute, loaded.RefreshInterval)
}
