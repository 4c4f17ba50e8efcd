package domain

import "context"

// Gateway is the boundary to the external species table. Both operations
// touch exactly one row identified by id, issue a single statement, and
// perform no authorization of their own: callers check ownership first.
type Gateway interface {
	Update(ctx context.Context, id string, payload SpeciesPayload) error
	Delete(ctx context.Context, id string) error
}

// Reader re-fetches species rows for display.
type Reader interface {
	Get(ctx context.Context, id string) (Species, error)
	List(ctx context.Context) ([]Species, error)
}

// SpeciesStore is a durable backend: the mutation gateway plus the reads the
// host page needs after a refresh.
type SpeciesStore interface {
	Gateway
	Reader
	// Insert seeds a row. Record creation is owned by the host application;
	// stores expose it for fixtures and imports.
	Insert(ctx context.Context, s Species) (Species, error)
	Close() error
}

// Transaction exposes the operations a transactional store supports within
// an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateSpecies(Species) (Species, error)
	UpdateSpecies(id string, mutator func(*Species) error) (Species, error)
	DeleteSpecies(id string) error
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
}
