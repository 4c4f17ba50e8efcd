package core

import "speciesdesk/pkg/domain"

type (
	Species            = domain.Species
	SpeciesPayload     = domain.SpeciesPayload
	Kingdom            = domain.Kingdom
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	ErrNotFound        = domain.ErrNotFound
)

const EntitySpecies = domain.EntitySpecies

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
