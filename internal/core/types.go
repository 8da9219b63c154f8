package core

import "mintcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Address            = domain.Address
	Category           = domain.Category
	Item               = domain.Item
	UpgradeRule        = domain.UpgradeRule
	RulePair           = domain.RulePair
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	OwnershipLedger    = domain.OwnershipLedger
	Authorizer         = domain.Authorizer
	Notifier           = domain.Notifier
)

const (
	EntityCategory    = domain.EntityCategory
	EntityItem        = domain.EntityItem
	EntityUpgradeRule = domain.EntityUpgradeRule
	EntityConfig      = domain.EntityConfig
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionRetire = domain.ActionRetire
)

// NewRulesEngine re-exports the domain constructor for core consumers.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
