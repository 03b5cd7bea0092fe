package handled

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/greg/db"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type StoreConfig struct {
	// Backend is "file" (default) or "sqlite".
	Backend string
	// Path is the JSON file used by the file backend.
	Path string
	// DSN selects the SQLite database; empty resolves under StateDir.
	DSN      string
	StateDir string
}

// OpenStore builds the configured handled-set backend.
func OpenStore(cfg StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		return NewFileStore(cfg.Path)
	case BackendSQLite:
		dsn, err := db.ResolveSQLiteDSN(cfg.DSN, cfg.StateDir)
		if err != nil {
			return nil, fmt.Errorf("resolve handled dsn: %w", err)
		}
		dbCfg := db.DefaultConfig()
		dbCfg.DSN = dsn
		return OpenSQLiteStore(dbCfg)
	default:
		return nil, fmt.Errorf("unknown handled backend %q (want file or sqlite)", cfg.Backend)
	}
}
