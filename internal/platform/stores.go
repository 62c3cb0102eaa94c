package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/noteq/noteq/pkg/adapters/fs"
	"github.com/noteq/noteq/pkg/adapters/memory"
	"github.com/noteq/noteq/pkg/adapters/redisstore"
	"github.com/noteq/noteq/pkg/adapters/sqlstore"
	"github.com/noteq/noteq/pkg/core"
)

// Store names (file names, SQL scopes, Redis namespaces).
const (
	LocalStore   = "local"
	SessionStore = "session"
)

// SessionTTL expires Redis session state left by abandoned attempts.
const SessionTTL = 24 * time.Hour

const defaultRedisURL = "redis://127.0.0.1:6379/0"

// openStores builds the local and session stores for cfg.Store.
func openStores(ctx context.Context, cfg Config, logger *slog.Logger) (local, session core.Store, closer io.Closer, err error) {
	switch cfg.Store {
	case StoreFS:
		local = fs.New(fs.Config{Dir: cfg.StateDir, Name: LocalStore, Logger: logger})
		session = fs.New(fs.Config{Dir: cfg.StateDir, Name: SessionStore, Logger: logger})
		return local, session, nil, nil

	case StoreSQLite, StorePostgres:
		driver, dsn := "postgres", cfg.StoreDSN
		if cfg.Store == StoreSQLite {
			driver = "sqlite3"
			if dsn == "" {
				if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
					return nil, nil, nil, fmt.Errorf("failed to create %s: %w", cfg.StateDir, err)
				}
				dsn = filepath.Join(cfg.StateDir, "noteq.db")
			}
		}
		db, err := sqlstore.Open(ctx, driver, dsn)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlstore.New(db, LocalStore), sqlstore.New(db, SessionStore), db, nil

	case StoreRedis:
		url := cfg.StoreDSN
		if url == "" {
			url = defaultRedisURL
		}
		client, err := redisstore.Connect(ctx, url)
		if err != nil {
			return nil, nil, nil, err
		}
		return redisstore.New(client, LocalStore, 0), redisstore.New(client, SessionStore, SessionTTL), client, nil

	case StoreMemory:
		return memory.New(), memory.New(), nil, nil
	}
	return nil, nil, nil, core.Invalid("store", "unknown store %q", cfg.Store)
}

func writeFile(path string, data []byte) error {
	return fs.WriteFileAtomic(path, data, 0o600)
}
