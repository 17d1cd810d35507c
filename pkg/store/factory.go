package store

import (
	"fmt"

	"github.com/hashdev89/smart-summary-insight-service/pkg/config"
)

// New constructs the Store implementation selected by cfg.BatchPersistenceBackend.
// External observers cannot distinguish the backends through the Store contract.
func New(cfg *config.Config) (Store, error) {
	switch cfg.BatchPersistenceBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.BatchJobStoragePath)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.BatchSQLitePath)
	default:
		return nil, fmt.Errorf("store: unknown persistence backend %q", cfg.BatchPersistenceBackend)
	}
}
