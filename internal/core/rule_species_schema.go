package core

import (
	"context"
	"fmt"

	"speciesdesk/pkg/domain"
)

// NewSpeciesSchemaRule returns the rule that re-validates every created or
// updated species against the edit schema before commit.
func NewSpeciesSchemaRule() domain.Rule {
	return speciesSchemaRule{}
}

type speciesSchemaRule struct{}

func (speciesSchemaRule) Name() string { return "species_schema" }

func (r speciesSchemaRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySpecies || change.Action == domain.ActionDelete {
			continue
		}
		after, ok := change.After.(domain.Species)
		if !ok {
			continue
		}
		errs := domain.ValidatePayload(after.Payload())
		if len(errs) == 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("species %s: %s", after.ID, errs.Error()),
			Entity:   domain.EntitySpecies,
			EntityID: after.ID,
		})
	}
	return res, nil
}
