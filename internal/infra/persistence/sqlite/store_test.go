package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"speciesdesk/pkg/domain"
)

func strPtr(v string) *string { return &v }
func intPtr(v int64) *int64   { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "species.db")
	store, err := NewStore(context.Background(), path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	lion := domain.Species{
		ID:              "7",
		ScientificName:  "Panthera leo",
		CommonName:      strPtr("Lion"),
		Kingdom:         domain.KingdomAnimalia,
		TotalPopulation: intPtr(20000),
		Description:     strPtr("Big cat"),
		Author:          "u1",
	}
	if _, err := store.Insert(ctx, lion); err != nil {
		t.Fatalf("insert: %v", err)
	}

	payload := lion.Payload()
	payload.CommonName = strPtr("African lion")
	payload.TotalPopulation = nil
	if err := store.Update(ctx, "7", payload); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := lion.Clone()
	want.Apply(payload)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	if err := store.Delete(ctx, "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var nf domain.ErrNotFound
	if _, err := store.Get(ctx, "7"); !errors.As(err, &nf) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStoreMissingRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var nf domain.ErrNotFound
	if err := store.Update(ctx, "x", domain.SpeciesPayload{ScientificName: "A", Kingdom: domain.KingdomFungi}); !errors.As(err, &nf) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if err := store.Delete(ctx, "x"); !errors.As(err, &nf) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
}

func TestStoreSurfacesConstraintMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if _, err := store.Insert(ctx, domain.Species{ID: "1", ScientificName: "Quercus robur", Kingdom: domain.KingdomPlantae, Author: "u1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := store.Update(ctx, "1", domain.SpeciesPayload{ScientificName: "Quercus robur", Kingdom: "Minerals"})
	if err == nil {
		t.Fatal("expected check constraint failure")
	}
	var storeErr *domain.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %T", err)
	}
	if !strings.Contains(strings.ToLower(domain.ErrorMessage(err)), "constraint") {
		t.Fatalf("expected constraint message, got %q", domain.ErrorMessage(err))
	}
}

func TestStoreListOrderedAndGeneratedIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, name := range []string{"b", "a"} {
		if _, err := store.Insert(ctx, domain.Species{ID: name, ScientificName: name, Kingdom: domain.KingdomArchaea, Author: "u"}); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}
	created, err := store.Insert(ctx, domain.Species{ScientificName: "c", Kingdom: domain.KingdomBacteria, Author: "u"})
	if err != nil || created.ID == "" {
		t.Fatalf("expected generated id, got %+v err=%v", created, err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("unexpected order %+v", list)
	}
}

func TestStoreDefaultsPath(t *testing.T) {
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatalf("getwd: %v", wdErr)
	}
	if cdErr := os.Chdir(t.TempDir()); cdErr != nil {
		t.Fatalf("chdir: %v", cdErr)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != defaultPath {
		t.Fatalf("expected default path, got %q", store.Path())
	}
}
