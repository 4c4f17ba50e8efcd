// Package domain defines the species record, its validation schema, the
// persistence contracts consumed by the workflow layer, and the rule
// evaluation primitives used by transactional stores.
package domain

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// EntitySpecies identifies a species record.
const EntitySpecies EntityType = "species"

// Kingdom is the closed set of taxonomic kingdoms a species may belong to.
type Kingdom string

// Supported kingdoms. No other value is representable in a valid record.
const (
	KingdomAnimalia Kingdom = "Animalia"
	KingdomPlantae  Kingdom = "Plantae"
	KingdomFungi    Kingdom = "Fungi"
	KingdomProtista Kingdom = "Protista"
	KingdomArchaea  Kingdom = "Archaea"
	KingdomBacteria Kingdom = "Bacteria"
)

// DefaultKingdom is preselected when a record carries no kingdom.
const DefaultKingdom = KingdomAnimalia

// Kingdoms returns the supported kingdoms in display order.
func Kingdoms() []Kingdom {
	return []Kingdom{
		KingdomAnimalia,
		KingdomPlantae,
		KingdomFungi,
		KingdomProtista,
		KingdomArchaea,
		KingdomBacteria,
	}
}

// Valid reports whether k is one of the supported kingdoms.
func (k Kingdom) Valid() bool {
	for _, known := range Kingdoms() {
		if k == known {
			return true
		}
	}
	return false
}

// Species is a single species row.
type Species struct {
	ID              string  `json:"id"`
	ScientificName  string  `json:"scientific_name"`
	CommonName      *string `json:"common_name"`
	Kingdom         Kingdom `json:"kingdom"`
	TotalPopulation *int64  `json:"total_population"`
	Image           *string `json:"image"`
	Description     *string `json:"description"`
	Author          string  `json:"author"`
}

// SpeciesPayload holds the editable fields of a species after validation.
// Identifier and author are deliberately absent: edits never touch them.
type SpeciesPayload struct {
	ScientificName  string  `json:"scientific_name" validate:"required"`
	CommonName      *string `json:"common_name"`
	Kingdom         Kingdom `json:"kingdom" validate:"required,kingdom"`
	TotalPopulation *int64  `json:"total_population" validate:"omitempty,min=1"`
	Image           *string `json:"image" validate:"omitempty,url"`
	Description     *string `json:"description"`
}

// Payload extracts the editable fields of the record.
func (s Species) Payload() SpeciesPayload {
	return SpeciesPayload{
		ScientificName:  s.ScientificName,
		CommonName:      cloneString(s.CommonName),
		Kingdom:         s.Kingdom,
		TotalPopulation: cloneInt64(s.TotalPopulation),
		Image:           cloneString(s.Image),
		Description:     cloneString(s.Description),
	}
}

// Apply replaces the editable fields of the record with the payload, leaving
// ID and Author untouched.
func (s *Species) Apply(p SpeciesPayload) {
	s.ScientificName = p.ScientificName
	s.CommonName = cloneString(p.CommonName)
	s.Kingdom = p.Kingdom
	s.TotalPopulation = cloneInt64(p.TotalPopulation)
	s.Image = cloneString(p.Image)
	s.Description = cloneString(p.Description)
}

// OwnedBy reports whether the acting user authored the record.
func (s Species) OwnedBy(actingUser string) bool {
	return actingUser != "" && actingUser == s.Author
}

// Clone returns a deep copy of the record.
func (s Species) Clone() Species {
	cp := s
	cp.CommonName = cloneString(s.CommonName)
	cp.TotalPopulation = cloneInt64(s.TotalPopulation)
	cp.Image = cloneString(s.Image)
	cp.Description = cloneString(s.Description)
	return cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the mutations captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
