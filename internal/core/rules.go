package core

import "mintcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewSupplyCapRule())
	engine.Register(NewSerialContiguityRule())
	return engine
}
