package storage

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open builds the RecordStore for the configured backend. The memory
// backend holds nothing across restarts and exists for tests and local
// experiments.
func Open(backend, sqlitePath string) (RecordStore, error) {
	switch backend {
	case BackendSQLite:
		store, err := NewSQLiteRepository(sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		slog.Info("Initialized SQLite backend", "db_path", sqlitePath)
		return store, nil
	case BackendMemory:
		slog.Info("Initialized memory backend")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", backend)
	}
}
