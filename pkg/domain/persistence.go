package domain

import "context"

// Transaction exposes the registry mutations that a persistence
// implementation must support within an atomic scope. Implementations
// buffer mutations against a candidate state; nothing becomes durable until
// the enclosing RunInTransaction call returns without error.
type Transaction interface {
	Snapshot() TransactionView

	// CreateCategory allocates the next sequential category identifier and
	// records the supply cap and creator payout address.
	CreateCategory(supplyCap uint64, creator Address) (Category, error)
	// IssueItem assigns the next global item identifier and per-category
	// serial to a new item owned by owner.
	IssueItem(categoryID uint64, owner Address) (Item, error)
	// RetireItem marks an item consumed by an upgrade. The owning category's
	// issued count is deliberately left untouched: merges permanently consume
	// supply capacity.
	RetireItem(itemID uint64) (Item, error)
	// SetUpgradeRule stores the target under both orderings of (base, mix)
	// and overwrites the per-category required-count slot of both categories.
	SetUpgradeRule(base, mix, target, requiredCount uint64) (UpgradeRule, error)
	// AssignItemMetadata records the metadata key under which an item's
	// payload is stored.
	AssignItemMetadata(itemID uint64, key string) (Item, error)
	// SetMaxBatchSize replaces the batch issuance ceiling.
	SetMaxBatchSize(limit uint64) error

	FindCategory(id uint64) (Category, bool)
	FindItem(id uint64) (Item, bool)
	RuleTarget(base, mix uint64) (uint64, bool)
	RequiredCount(categoryID uint64) uint64
	MaxBatchSize() uint64
}

// TransactionView provides read-only access to snapshot data for rules and
// queries.
type TransactionView interface {
	RuleView
	NextCategoryID() uint64
	NextItemID() uint64
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCategory(id uint64) (Category, bool)
	ListCategories() []Category
	GetItem(id uint64) (Item, bool)
	ListItems() []Item
	GetItemBySerial(categoryID, serial uint64) (Item, bool)
	GetUpgradeRule(base, mix uint64) (UpgradeRule, bool)
	MaxBatchSize() uint64
}
