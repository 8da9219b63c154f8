package domain

import "context"

// OwnershipLedger is the external collaborator that owns item ownership,
// approval, and metadata records. The core only performs the accounting;
// actual item creation, transfer bookkeeping, and metadata storage live
// behind this interface.
type OwnershipLedger interface {
	// ItemExists reports whether the ledger tracks an ownership record for
	// the item.
	ItemExists(ctx context.Context, itemID uint64) (bool, error)
	// IsOwnerOrApproved reports whether addr owns the item or is an approved
	// agent for it.
	IsOwnerOrApproved(ctx context.Context, addr Address, itemID uint64) (bool, error)
	// CreateItemRecord establishes ownership of a freshly issued item.
	CreateItemRecord(ctx context.Context, owner Address, itemID uint64) error
	// DestroyItemRecord removes an item's ownership record.
	DestroyItemRecord(ctx context.Context, itemID uint64) error
	// AssignMetadata attaches a metadata payload to an item and returns the
	// storage key under which the payload was recorded.
	AssignMetadata(ctx context.Context, itemID uint64, payload []byte) (string, error)
}

// Authorizer performs the credential and policy checks guarding privileged
// or ownership-moving operations. The core never re-implements access
// control; it asks before mutating.
type Authorizer interface {
	RequireAdministrator(ctx context.Context, actor Address) error
	RequireNotSuspended(ctx context.Context) error
}

// Notifier receives outbound notifications after a transaction commits.
// Implementations must not influence the transaction outcome.
type Notifier interface {
	CategoryCreated(ctx context.Context, creator Address, categoryID, supplyCap uint64)
	ItemIssued(ctx context.Context, item Item)
	ItemsUpgraded(ctx context.Context, owner Address, consumed []uint64, replacement Item)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// CategoryCreated implements Notifier.
func (NopNotifier) CategoryCreated(context.Context, Address, uint64, uint64) {}

// ItemIssued implements Notifier.
func (NopNotifier) ItemIssued(context.Context, Item) {}

// ItemsUpgraded implements Notifier.
func (NopNotifier) ItemsUpgraded(context.Context, Address, []uint64, Item) {}
