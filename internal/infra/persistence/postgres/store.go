// Package postgres provides the Postgres-backed species store. Every gateway
// call issues exactly one statement against the species table created from the
// embedded DDL on startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"speciesdesk/internal/entitymodel/sqlbundle"
	"speciesdesk/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SpeciesStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/speciesdesk?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const (
	selectColumns = `id, scientific_name, common_name, kingdom, total_population, image, description, author`

	updateSpecies = `UPDATE species SET scientific_name = $1, common_name = $2, kingdom = $3,
		total_population = $4, image = $5, description = $6 WHERE id = $7`
	deleteSpecies = `DELETE FROM species WHERE id = $1`
	insertSpecies = `INSERT INTO species (` + selectColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	getSpecies    = `SELECT ` + selectColumns + ` FROM species WHERE id = $1`
	listSpecies   = `SELECT ` + selectColumns + ` FROM species ORDER BY id`
)

// Store persists species rows to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN)
// and applies the species DDL.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyDDL(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func applyDDL(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqlbundle.SplitStatements(sqlbundle.Postgres()) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// Update replaces the editable columns of the row identified by id.
func (s *Store) Update(ctx context.Context, id string, p domain.SpeciesPayload) error {
	res, err := s.db.ExecContext(ctx, updateSpecies,
		p.ScientificName, p.CommonName, string(p.Kingdom), p.TotalPopulation, p.Image, p.Description, id)
	if err != nil {
		return storeError("update species", err)
	}
	return requireRow(res, id)
}

// Delete removes the row identified by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, deleteSpecies, id)
	if err != nil {
		return storeError("delete species", err)
	}
	return requireRow(res, id)
}

// Insert writes a new row, assigning a UUID when the record carries no ID.
func (s *Store) Insert(ctx context.Context, sp domain.Species) (domain.Species, error) {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if _, err := s.db.ExecContext(ctx, insertSpecies,
		sp.ID, sp.ScientificName, sp.CommonName, string(sp.Kingdom), sp.TotalPopulation, sp.Image, sp.Description, sp.Author); err != nil {
		return domain.Species{}, storeError("insert species", err)
	}
	return sp.Clone(), nil
}

// Get fetches the row identified by id.
func (s *Store) Get(ctx context.Context, id string) (domain.Species, error) {
	rows, err := s.db.QueryContext(ctx, getSpecies, id)
	if err != nil {
		return domain.Species{}, storeError("select species", err)
	}
	list, err := scanAll(rows)
	if err != nil {
		return domain.Species{}, err
	}
	if len(list) == 0 {
		return domain.Species{}, domain.ErrNotFound{Entity: domain.EntitySpecies, ID: id}
	}
	return list[0], nil
}

// List returns every row ordered by id.
func (s *Store) List(ctx context.Context) ([]domain.Species, error) {
	rows, err := s.db.QueryContext(ctx, listSpecies)
	if err != nil {
		return nil, storeError("list species", err)
	}
	return scanAll(rows)
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func scanAll(rows *sql.Rows) ([]domain.Species, error) {
	defer func() { _ = rows.Close() }()
	var out []domain.Species
	for rows.Next() {
		var (
			sp          domain.Species
			kingdom     string
			common      sql.NullString
			population  sql.NullInt64
			image       sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(&sp.ID, &sp.ScientificName, &common, &kingdom, &population, &image, &description, &sp.Author); err != nil {
			return nil, fmt.Errorf("scan species: %w", err)
		}
		sp.Kingdom = domain.Kingdom(kingdom)
		if common.Valid {
			sp.CommonName = &common.String
		}
		if population.Valid {
			sp.TotalPopulation = &population.Int64
		}
		if image.Valid {
			sp.Image = &image.String
		}
		if description.Valid {
			sp.Description = &description.String
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate species", err)
	}
	return out, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound{Entity: domain.EntitySpecies, ID: id}
	}
	return nil
}

// storeError keeps the server's own message so callers can surface it verbatim.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &domain.StoreError{Message: pgErr.Message, Err: err}
	}
	return &domain.StoreError{Err: fmt.Errorf("%s: %w", op, err)}
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
