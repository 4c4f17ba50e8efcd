package domain

import (
	"context"
	"errors"
	"testing"
)

type countingRule struct {
	name  string
	calls int
	res   Result
	err   error
}

func (r *countingRule) Name() string { return r.name }

func (r *countingRule) Evaluate(_ context.Context, _ RuleView, _ []Change) (Result, error) {
	r.calls++
	return r.res, r.err
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	warn := &countingRule{name: "warn", res: Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}}}
	block := &countingRule{name: "block", res: Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock}}}}
	engine.Register(warn)
	engine.Register(block)

	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("unexpected result %+v", res)
	}
	if names := engine.Rules(); len(names) != 2 || names[0] != "warn" || names[1] != "block" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

func TestRulesEngineStopsOnError(t *testing.T) {
	engine := NewRulesEngine()
	failing := &countingRule{name: "fail", err: errors.New("boom")}
	after := &countingRule{name: "after"}
	engine.Register(failing)
	engine.Register(after)
	if _, err := engine.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error")
	}
	if after.calls != 0 {
		t.Fatalf("rules after a failure must not run")
	}
}
