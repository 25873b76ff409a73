package transcript

import (
	"fmt"

	"mercator-hq/parley/pkg/config"
)

// Open builds the store selected by cfg.Backend.
func Open(cfg config.TranscriptConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
			WALMode:      cfg.SQLite.WALMode,
		})
	default:
		return nil, fmt.Errorf("unsupported transcript backend %q", cfg.Backend)
	}
}
