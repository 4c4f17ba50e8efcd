package memory

import (
	"context"
	"errors"
	"testing"

	"speciesdesk/pkg/domain"
)

func strPtr(v string) *string { return &v }

func seed(t *testing.T, store *Store) Species {
	t.Helper()
	sp, err := store.Insert(context.Background(), Species{
		ScientificName: "Panthera leo",
		CommonName:     strPtr("Lion"),
		Kingdom:        domain.KingdomAnimalia,
		Author:         "alice",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return sp
}

func TestStoreInsertGetList(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	sp := seed(t, store)
	if sp.ID == "" {
		t.Fatalf("expected generated ID")
	}
	got, err := store.Get(ctx, sp.ID)
	if err != nil || got.ScientificName != "Panthera leo" || got.Author != "alice" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := store.Insert(ctx, Species{ID: sp.ID}); err == nil {
		t.Fatalf("expected duplicate insert error")
	}
	list, err := store.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
	*list[0].CommonName = "mutated"
	again, _ := store.Get(ctx, sp.ID)
	if *again.CommonName != "Lion" {
		t.Fatalf("list must return copies")
	}
}

func TestStoreUpdateReplacesEditableFields(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	sp := seed(t, store)
	pop := int64(20000)
	payload := domain.SpeciesPayload{ScientificName: "Panthera leo leo", Kingdom: domain.KingdomAnimalia, TotalPopulation: &pop}
	if err := store.Update(ctx, sp.ID, payload); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.Get(ctx, sp.ID)
	if got.ScientificName != "Panthera leo leo" || got.CommonName != nil || *got.TotalPopulation != 20000 {
		t.Fatalf("update not applied as full replacement: %+v", got)
	}
	if got.Author != "alice" || got.ID != sp.ID {
		t.Fatalf("identity changed: %+v", got)
	}
	// Updates are not gated on differences.
	if err := store.Update(ctx, sp.ID, payload); err != nil {
		t.Fatalf("repeat update: %v", err)
	}
}

func TestStoreMissingRows(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var nf domain.ErrNotFound
	if err := store.Update(ctx, "missing", domain.SpeciesPayload{}); !errors.As(err, &nf) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.As(err, &nf) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.As(err, &nf) {
		t.Fatalf("expected not found on get, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	sp := seed(t, store)
	if err := store.Delete(ctx, sp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ := store.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty store")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block_all" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, c := range changes {
		if c.Action == domain.ActionUpdate {
			res.Violations = append(res.Violations, domain.Violation{Rule: "block_all", Severity: domain.SeverityBlock, Message: "frozen"})
		}
	}
	return res, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{}, errors.New("rule failed")
}

func TestStoreRuleViolationRollsBack(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	ctx := context.Background()
	sp := seed(t, store)
	store.RulesEngine().Register(blockingRule{})

	err := store.Update(ctx, sp.ID, domain.SpeciesPayload{ScientificName: "changed", Kingdom: domain.KingdomFungi})
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) || !rv.Result.HasBlocking() {
		t.Fatalf("expected rule violation, got %v", err)
	}
	got, _ := store.Get(ctx, sp.ID)
	if got.ScientificName != "Panthera leo" {
		t.Fatalf("blocked transaction must not commit: %+v", got)
	}
}

func TestStoreRuleErrorAborts(t *testing.T) {
	store := NewStore(nil)
	store.RulesEngine().Register(failingRule{})
	if _, err := store.Insert(context.Background(), Species{ScientificName: "x"}); err == nil {
		t.Fatalf("expected rule error")
	}
	if list, _ := store.List(context.Background()); len(list) != 0 {
		t.Fatalf("failed transaction must not commit")
	}
}

func TestStoreView(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	sp := seed(t, store)

	err := store.View(ctx, func(v TransactionView) error {
		if _, ok := v.FindSpecies(sp.ID); !ok {
			t.Fatalf("expected seeded species in view")
		}
		if _, ok := v.FindSpecies("missing"); ok {
			t.Fatalf("unexpected species")
		}
		if len(v.ListSpecies()) != 1 {
			t.Fatalf("unexpected view size")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestTransactionSnapshotSeesPendingChanges(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateSpecies(Species{ID: "a", ScientificName: "A"}); err != nil {
			return err
		}
		if len(tx.Snapshot().ListSpecies()) != 1 {
			t.Fatalf("snapshot should include pending create")
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected abort error")
	}
	if list, _ := store.List(context.Background()); len(list) != 0 {
		t.Fatalf("aborted transaction leaked state")
	}
}
