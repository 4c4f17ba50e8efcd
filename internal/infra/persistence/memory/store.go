// Package memory provides an in-memory implementation of the species store
// used for tests and ephemeral environments. Mutations run inside copy-on-write
// transactions that are evaluated by the rules engine before commit.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"speciesdesk/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain store interface.
var _ domain.SpeciesStore = (*Store)(nil)

type (
	// Species aliases domain.Species for in-memory persistence operations.
	Species = domain.Species
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	species map[string]Species
}

func newMemoryState() memoryState {
	return memoryState{species: make(map[string]Species)}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.species {
		cloned.species[k] = v.Clone()
	}
	return cloned
}

// Store is the in-memory species store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
	}
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// RulesEngine exposes the configured engine so callers can register rules.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

type transaction struct {
	state   memoryState
	changes []Change
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListSpecies returns all species within the snapshot ordered by ID.
func (v transactionView) ListSpecies() []Species {
	return sortedSpecies(v.state.species)
}

// FindSpecies retrieves a species by ID from the snapshot.
func (v transactionView) FindSpecies(id string) (Species, bool) {
	sp, ok := v.state.species[id]
	if !ok {
		return Species{}, false
	}
	return sp.Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy is committed only when fn succeeds and no blocking rule fires.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateSpecies stores a new species within the transaction.
func (tx *transaction) CreateSpecies(sp Species) (Species, error) {
	if sp.ID == "" {
		sp.ID = newID()
	}
	if _, exists := tx.state.species[sp.ID]; exists {
		return Species{}, fmt.Errorf("species %q already exists", sp.ID)
	}
	tx.state.species[sp.ID] = sp.Clone()
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionCreate, After: sp.Clone()})
	return sp.Clone(), nil
}

// UpdateSpecies mutates a species using the provided mutator function.
func (tx *transaction) UpdateSpecies(id string, mutator func(*Species) error) (Species, error) {
	current, ok := tx.state.species[id]
	if !ok {
		return Species{}, domain.ErrNotFound{Entity: domain.EntitySpecies, ID: id}
	}
	before := current.Clone()
	if err := mutator(&current); err != nil {
		return Species{}, err
	}
	current.ID = id
	tx.state.species[id] = current.Clone()
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteSpecies removes a species from the transaction state.
func (tx *transaction) DeleteSpecies(id string) error {
	current, ok := tx.state.species[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntitySpecies, ID: id}
	}
	delete(tx.state.species, id)
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// Insert seeds a species row.
func (s *Store) Insert(ctx context.Context, sp Species) (Species, error) {
	var created Species
	_, err := s.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateSpecies(sp)
		return err
	})
	return created, err
}

// Update replaces the editable fields of the species identified by id.
func (s *Store) Update(ctx context.Context, id string, payload domain.SpeciesPayload) error {
	_, err := s.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateSpecies(id, func(sp *Species) error {
			sp.Apply(payload)
			return nil
		})
		return err
	})
	return err
}

// Delete removes the species identified by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteSpecies(id)
	})
	return err
}

// Get returns the committed species identified by id.
func (s *Store) Get(_ context.Context, id string) (Species, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.state.species[id]
	if !ok {
		return Species{}, domain.ErrNotFound{Entity: domain.EntitySpecies, ID: id}
	}
	return sp.Clone(), nil
}

// List returns all committed species ordered by ID.
func (s *Store) List(_ context.Context) ([]Species, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSpecies(s.state.species), nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func sortedSpecies(in map[string]Species) []Species {
	out := make([]Species, 0, len(in))
	for _, sp := range in {
		out = append(out, sp.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
