package core

import (
	"context"
	"fmt"

	"speciesdesk/internal/infra/persistence/memory"
	"speciesdesk/internal/infra/persistence/postgres"
	"speciesdesk/internal/infra/persistence/sqlite"
	"speciesdesk/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and configures the species table backend.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	// Engine evaluates rules on memory-store transactions. Nil uses NewDefaultRulesEngine.
	Engine *RulesEngine
}

// OpenPersistentStore selects a backend from opts. Defaults to sqlite when unset.
func OpenPersistentStore(ctx context.Context, opts StorageOptions) (domain.SpeciesStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		engine := opts.Engine
		if engine == nil {
			engine = NewDefaultRulesEngine()
		}
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, opts.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
