package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSpeciesPayloadApplyKeepsIdentity(t *testing.T) {
	pop := int64(10)
	s := Species{ID: "42", Author: "alice", ScientificName: "old", Kingdom: KingdomFungi}
	s.Apply(SpeciesPayload{ScientificName: "new", Kingdom: KingdomPlantae, TotalPopulation: &pop, CommonName: str("fern")})
	if s.ID != "42" || s.Author != "alice" {
		t.Fatalf("identity changed: %+v", s)
	}
	if s.ScientificName != "new" || s.Kingdom != KingdomPlantae || *s.TotalPopulation != 10 || *s.CommonName != "fern" {
		t.Fatalf("fields not applied: %+v", s)
	}
	pop = 99
	if *s.TotalPopulation != 10 {
		t.Fatalf("apply must copy pointers")
	}
	p := s.Payload()
	*p.CommonName = "changed"
	if *s.CommonName != "fern" {
		t.Fatalf("payload must not alias record")
	}
}

func TestSpeciesCloneAndOwnership(t *testing.T) {
	s := Species{ID: "1", Author: "bob", Description: str("d")}
	c := s.Clone()
	*c.Description = "x"
	if *s.Description != "d" {
		t.Fatalf("clone aliases description")
	}
	if !s.OwnedBy("bob") || s.OwnedBy("alice") || s.OwnedBy("") {
		t.Fatalf("ownership check wrong")
	}
	if (Species{}).OwnedBy("") {
		t.Fatalf("empty acting user must never own a record")
	}
}

func TestKingdoms(t *testing.T) {
	if len(Kingdoms()) != 6 {
		t.Fatalf("expected six kingdoms")
	}
	if Kingdom("Animalia").Valid() != true || Kingdom("Chromista").Valid() {
		t.Fatalf("kingdom validity wrong")
	}
}

func TestResultMergeAndBlocking(t *testing.T) {
	var r Result
	r.Merge(Result{})
	if r.HasBlocking() {
		t.Fatalf("empty result cannot block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}})
	if r.HasBlocking() {
		t.Fatalf("warn must not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock, Message: "nope"}}})
	if !r.HasBlocking() || len(r.Violations) != 2 {
		t.Fatalf("unexpected result %+v", r)
	}
	if got := (RuleViolationError{Result: r}).Error(); got != "transaction blocked by rules: nope" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (RuleViolationError{}).Error(); got != "transaction blocked by rules" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	if ErrorMessage(nil) != "" {
		t.Fatalf("nil error must have empty message")
	}
	wrapped := fmt.Errorf("update species: %w", &StoreError{Message: "network error", Err: errors.New("dial tcp")})
	if got := ErrorMessage(wrapped); got != "network error" {
		t.Fatalf("store message not surfaced: %q", got)
	}
	if got := ErrorMessage(errors.New("plain")); got != "plain" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (&StoreError{Err: errors.New("raw")}).Error(); got != "raw" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (ErrNotFound{Entity: EntitySpecies, ID: "9"}).Error(); got != "species 9 not found" {
		t.Fatalf("unexpected message %q", got)
	}
}
