package db

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Config struct {
	Driver      string
	DSN         string
	Pool        PoolConfig
	SQLite      SQLiteConfig
	AutoMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "",
		Pool: PoolConfig{
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 0,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
		},
		AutoMigrate: true,
	}
}

// ResolveSQLiteDSN picks the database location when none is configured.
func ResolveSQLiteDSN(dsn string, stateDir string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn != "" {
		return dsn, nil
	}

	stateDir = strings.TrimSpace(stateDir)
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".greg")
	}
	stateDB := filepath.Join(stateDir, "greg.sqlite")
	localDB := filepath.Clean("./greg.sqlite")

	// Precedence:
	// 1) existing <state_dir>/greg.sqlite
	if _, err := os.Stat(stateDB); err == nil {
		return stateDB, nil
	}
	// 2) existing ./greg.sqlite
	if _, err := os.Stat(localDB); err == nil {
		return localDB, nil
	}
	// 3) create + use <state_dir>/greg.sqlite
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return "", err
	}
	return stateDB, nil
}

// sqliteDSNWithPragmas appends connection pragmas understood by the sqlite
// driver unless the DSN already carries its own query string.
func sqliteDSNWithPragmas(dsn string, cfg SQLiteConfig) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	q := url.Values{}
	if cfg.BusyTimeoutMs > 0 {
		q.Set("_busy_timeout", fmt.Sprintf("%d", cfg.BusyTimeoutMs))
	}
	if cfg.WAL {
		q.Set("_journal_mode", "WAL")
	}
	if len(q) == 0 {
		return dsn
	}
	return dsn + "?" + q.Encode()
}
