// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by mintcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCategory identifies a category record.
	EntityCategory EntityType = "category"
	// EntityItem identifies an issued item record.
	EntityItem EntityType = "item"
	// EntityUpgradeRule identifies an upgrade rule record.
	EntityUpgradeRule EntityType = "upgrade_rule"
	// EntityConfig identifies registry-level configuration such as the batch limit.
	EntityConfig EntityType = "config"
)

// Address identifies an external account: a category creator's payout
// address, an item owner, or an approved agent. The core treats it as an
// opaque string; credential checks live with the Authorizer collaborator.
type Address string

// DefaultMaxBatchSize is the batch issuance ceiling applied until an
// administrator overrides it.
const DefaultMaxBatchSize uint64 = 100

// Category is a fixed pool with a bounded supply from which sequentially
// numbered items are issued. A category exists iff its supply cap is
// positive; the cap never decreases, so existence is a creation marker that
// outlives quota exhaustion. Remaining capacity is AvailableSlots.
type Category struct {
	ID          uint64    `json:"id"`
	SupplyCap   uint64    `json:"supply_cap"`
	IssuedCount uint64    `json:"issued_count"`
	Creator     Address   `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Exists reports whether the category has been created. Exhausted
// categories still exist.
func (c Category) Exists() bool { return c.SupplyCap > 0 }

// AvailableSlots returns the remaining issuable quota. For a zero-value
// (never created) category this is 0 by convention.
func (c Category) AvailableSlots() uint64 {
	if c.IssuedCount >= c.SupplyCap {
		return 0
	}
	return c.SupplyCap - c.IssuedCount
}

// Item is a single issued unit. IDs are global, strictly increasing, and
// never reused; serials are 1-based and contiguous within the owning
// category. Retired items keep their serial so the per-category serial run
// stays gap-free, and retirement does not return capacity to the category.
type Item struct {
	ID          uint64    `json:"id"`
	CategoryID  uint64    `json:"category_id"`
	Serial      uint64    `json:"serial"`
	Owner       Address   `json:"owner"`
	MetadataKey string    `json:"metadata_key,omitempty"`
	Retired     bool      `json:"retired,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// RulePair is the ordered (base, mix) key under which an upgrade target is
// stored. Targets are written under both orderings, so rule lookups are
// effectively undirected even though the key is not.
type RulePair struct {
	Base uint64 `json:"base"`
	Mix  uint64 `json:"mix"`
}

// UpgradeRule is the materialized view of a rule lookup: the target category
// stored for the (base, mix) pair and the required count currently stored
// for the base category. Required counts live in a per-category slot rather
// than per pair, so a category participating in several rules shares one
// slot and the latest SetUpgradeRule wins. That overwrite is inherited
// behavior and is preserved, not corrected.
type UpgradeRule struct {
	Base          uint64 `json:"base"`
	Mix           uint64 `json:"mix"`
	Target        uint64 `json:"target"`
	RequiredCount uint64 `json:"required_count"`
}

// Severity describes the blocking level of a rule violation.
type Severity string

// Violation severities understood by the transaction boundary.
const (
	// SeverityBlock aborts the enclosing transaction.
	SeverityBlock Severity = "block"
	// SeverityWarn surfaces in the result without blocking.
	SeverityWarn Severity = "warn"
	// SeverityLog is informational only.
	SeverityLog Severity = "log"
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

// Change actions enumerate the mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionRetire indicates an item was consumed by an upgrade.
	ActionRetire Action = "retire"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID uint64
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

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
