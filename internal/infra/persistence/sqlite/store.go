// Package sqlite provides the embedded SQLite species store used for local
// deployments. Each gateway call runs one statement against the species table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"modernc.org/sqlite" // pure go sqlite driver

	"speciesdesk/internal/entitymodel/sqlbundle"
	"speciesdesk/pkg/domain"
)

var _ domain.SpeciesStore = (*Store)(nil)

const defaultPath = "speciesdesk.db"

const (
	columns = `id, scientific_name, common_name, kingdom, total_population, image, description, author`

	updateSpecies = `UPDATE species SET scientific_name = ?, common_name = ?, kingdom = ?,
		total_population = ?, image = ?, description = ? WHERE id = ?`
	deleteSpecies = `DELETE FROM species WHERE id = ?`
	insertSpecies = `INSERT INTO species (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	getSpecies    = `SELECT ` + columns + ` FROM species WHERE id = ?`
	listSpecies   = `SELECT ` + columns + ` FROM species ORDER BY id`
)

// Store persists species rows to a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating when needed) the SQLite file at path and applies the species DDL.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	for _, stmt := range sqlbundle.SplitStatements(sqlbundle.SQLite()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

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
	sp, err := scanSpecies(s.db.QueryRowContext(ctx, getSpecies, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Species{}, domain.ErrNotFound{Entity: domain.EntitySpecies, ID: id}
	}
	if err != nil {
		return domain.Species{}, storeError("select species", err)
	}
	return sp, nil
}

// List returns every row ordered by id.
func (s *Store) List(ctx context.Context) ([]domain.Species, error) {
	rows, err := s.db.QueryContext(ctx, listSpecies)
	if err != nil {
		return nil, storeError("list species", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Species
	for rows.Next() {
		sp, err := scanSpecies(rows)
		if err != nil {
			return nil, storeError("scan species", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate species", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSpecies(row scanner) (domain.Species, error) {
	var (
		sp          domain.Species
		kingdom     string
		common      sql.NullString
		population  sql.NullInt64
		image       sql.NullString
		description sql.NullString
	)
	if err := row.Scan(&sp.ID, &sp.ScientificName, &common, &kingdom, &population, &image, &description, &sp.Author); err != nil {
		return domain.Species{}, err
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
	return sp, nil
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

func storeError(op string, err error) error {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return &domain.StoreError{Message: sqErr.Error(), Err: err}
	}
	return &domain.StoreError{Err: fmt.Errorf("%s: %w", op, err)}
}
