package core

// NewDefaultRulesEngine builds a rules engine with the built-in species guards.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewAuthorImmutableRule())
	engine.Register(NewSpeciesSchemaRule())
	return engine
}
