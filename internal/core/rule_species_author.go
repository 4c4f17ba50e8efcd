package core

import (
	"context"
	"fmt"

	"speciesdesk/pkg/domain"
)

// NewAuthorImmutableRule returns the rule that blocks any update changing a
// record's author or identifier.
func NewAuthorImmutableRule() domain.Rule {
	return authorImmutableRule{}
}

type authorImmutableRule struct{}

func (authorImmutableRule) Name() string { return "species_author_immutable" }

func (r authorImmutableRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntitySpecies || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Species)
		after, okAfter := change.After.(domain.Species)
		if !okBefore || !okAfter {
			continue
		}
		if before.Author != after.Author || before.ID != after.ID {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("species %s: author cannot change (%q -> %q)", before.ID, before.Author, after.Author),
				Entity:   domain.EntitySpecies,
				EntityID: before.ID,
			})
		}
	}
	return res, nil
}
